// Package settings persists client preferences between runs: the viewer
// role, display names for both parties, and the last mood picked.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	"moodchat/internal/message"
)

// Settings is the persisted client state: who this viewer is, how the two
// parties are labeled, and the last mood picked.
type Settings struct {
	Role         message.Role            `json:"role"`
	DisplayNames map[message.Role]string `json:"display_names,omitempty"`
	LastMood     string                  `json:"last_mood,omitempty"`
	ServerURL    string                  `json:"server_url,omitempty"`
}

// Default returns the settings used before anything was saved.
func Default() Settings {
	return Settings{
		Role: message.RoleUser,
		DisplayNames: map[message.Role]string{
			message.RoleUser:  "user",
			message.RoleAdmin: "admin",
		},
	}
}

// Load reads settings from path, returning defaults when the file does not
// exist yet.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	s := Default()
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, err
	}
	if !s.Role.Valid() {
		s.Role = message.RoleUser
	}
	return s, nil
}

// Save writes settings to path, creating parent directories as needed.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
