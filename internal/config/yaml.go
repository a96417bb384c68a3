package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// serverYAML mirrors the optional config file layout:
//
//	server:
//	  address: 0.0.0.0:8080
//	  public_url: https://chat.example.net
//	storage:
//	  driver: postgres
//	  database_url: postgres://...
//	  data_dir: /var/lib/moodchat
//	limits:
//	  max_upload_bytes: 10485760
//	  write_rps: 5
//	  write_burst: 10
type serverYAML struct {
	Server struct {
		Address   string `yaml:"address"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"server"`
	Storage struct {
		Driver      string `yaml:"driver"`
		DatabaseURL string `yaml:"database_url"`
		DataDir     string `yaml:"data_dir"`
	} `yaml:"storage"`
	Limits struct {
		MaxUploadBytes int64   `yaml:"max_upload_bytes"`
		WriteRPS       float64 `yaml:"write_rps"`
		WriteBurst     int     `yaml:"write_burst"`
	} `yaml:"limits"`
}

// applyServerYAML fills cfg from the file for every value not already
// pinned by an explicit command-line flag.
func applyServerYAML(cfg *ServerConfig, path string, set map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file serverYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if !set["addr"] && file.Server.Address != "" {
		cfg.Addr = file.Server.Address
	}
	if !set["public-url"] && file.Server.PublicURL != "" {
		cfg.PublicBaseURL = file.Server.PublicURL
	}
	if !set["driver"] && file.Storage.Driver != "" {
		cfg.Driver = file.Storage.Driver
	}
	if !set["database-url"] && file.Storage.DatabaseURL != "" {
		cfg.DatabaseURL = file.Storage.DatabaseURL
	}
	if !set["data-dir"] && file.Storage.DataDir != "" {
		cfg.DataDir = file.Storage.DataDir
	}
	if !set["max-upload"] && file.Limits.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = file.Limits.MaxUploadBytes
	}
	if !set["write-rps"] && file.Limits.WriteRPS > 0 {
		cfg.WriteRPS = file.Limits.WriteRPS
	}
	if !set["write-burst"] && file.Limits.WriteBurst > 0 {
		cfg.WriteBurst = file.Limits.WriteBurst
	}
	return nil
}
