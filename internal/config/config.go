// Package config loads runtime settings for the server and client
// binaries. Precedence per value: command-line flag, then YAML config
// file, then environment (a .env file is honored), then the built-in
// default.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds the serving-side settings.
type ServerConfig struct {
	Addr          string
	PublicBaseURL string

	// Driver selects the message store: "bolt" or "postgres".
	Driver      string
	DatabaseURL string

	DataDir    string
	MessagesDB string
	BlobsDB    string
	BlobsDir   string

	MaxUploadBytes int64
	WriteRPS       float64
	WriteBurst     int

	ConfigFile string
}

// LoadServer parses server settings from args (without the program name).
func LoadServer(args []string) (*ServerConfig, error) {
	_ = godotenv.Load()

	cfg := &ServerConfig{
		Addr:           envOr("MOODCHAT_ADDR", "127.0.0.1:8080"),
		PublicBaseURL:  envOr("MOODCHAT_PUBLIC_URL", ""),
		Driver:         envOr("MOODCHAT_DRIVER", "bolt"),
		DatabaseURL:    envOr("DATABASE_URL", ""),
		DataDir:        envOr("MOODCHAT_DATA_DIR", "moodchat-data"),
		MaxUploadBytes: envInt64("MOODCHAT_MAX_UPLOAD", 10<<20),
		WriteRPS:       envFloat("MOODCHAT_WRITE_RPS", 5),
		WriteBurst:     int(envInt64("MOODCHAT_WRITE_BURST", 10)),
	}

	fs := flag.NewFlagSet("moodchat-server", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "address to serve on (host:port)")
	fs.StringVar(&cfg.PublicBaseURL, "public-url", cfg.PublicBaseURL, "externally visible base url (defaults to http://<addr>)")
	fs.StringVar(&cfg.Driver, "driver", cfg.Driver, "message store driver: bolt or postgres")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "postgres connection url (driver=postgres)")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "base directory for embedded store and blobs")
	fs.Int64Var(&cfg.MaxUploadBytes, "max-upload", cfg.MaxUploadBytes, "maximum attachment size in bytes")
	fs.Float64Var(&cfg.WriteRPS, "write-rps", cfg.WriteRPS, "sustained writes per second (0 disables limiting)")
	fs.IntVar(&cfg.WriteBurst, "write-burst", cfg.WriteBurst, "write burst size")
	fs.StringVar(&cfg.ConfigFile, "config", "", "optional YAML config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		set := flagsSet(fs)
		if err := applyServerYAML(cfg, cfg.ConfigFile, set); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.ensureDirs()
	return cfg, nil
}

func (cfg *ServerConfig) validate() error {
	switch cfg.Driver {
	case "bolt":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("driver=postgres requires -database-url or DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	return nil
}

func (cfg *ServerConfig) ensureDirs() {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("init data dir: %v", err)
	}
	cfg.MessagesDB = filepath.Join(cfg.DataDir, "messages.db")
	cfg.BlobsDB = filepath.Join(cfg.DataDir, "blobs.db")
	cfg.BlobsDir = filepath.Join(cfg.DataDir, "blobs")
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://" + cfg.Addr
	}
}

// ClientConfig holds the terminal client settings.
type ClientConfig struct {
	ServerURL    string
	Role         string
	Mood         string
	UseTUI       bool
	NoColor      bool
	Timeout      time.Duration
	DataDir      string
	SettingsFile string
}

// LoadClient parses client settings from args (without the program name).
func LoadClient(args []string) (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{
		ServerURL: envOr("MOODCHAT_SERVER", "http://127.0.0.1:8080"),
		Role:      envOr("MOODCHAT_ROLE", "user"),
		DataDir:   envOr("MOODCHAT_DATA_DIR", "moodchat-data"),
	}

	fs := flag.NewFlagSet("moodchat", flag.ContinueOnError)
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "moodchat server base url")
	fs.StringVar(&cfg.Role, "role", cfg.Role, "viewer role: user or admin")
	fs.StringVar(&cfg.Mood, "mood", "", "mood room to open the chat in")
	fs.BoolVar(&cfg.UseTUI, "tui", false, "enable terminal UI mode")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "disable ANSI colors in CLI output")
	fs.DurationVar(&cfg.Timeout, "timeout", 15*time.Second, "network timeout for fetch/send/upload")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for client settings")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Role != "user" && cfg.Role != "admin" {
		return nil, fmt.Errorf("role must be user or admin, got %q", cfg.Role)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("init data dir: %w", err)
	}
	cfg.SettingsFile = filepath.Join(cfg.DataDir, "client.json")
	return cfg, nil
}

func flagsSet(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}
