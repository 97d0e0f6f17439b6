package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

var envFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads the .env files present in root and returns their paths.
// Variables already set in the process environment are not overwritten.
func LoadEnvFiles(root string) []string {
	var loaded []string
	for _, name := range envFiles {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load env file", "path", path, "error", err)
			continue
		}
		loaded = append(loaded, path)
	}
	return loaded
}
