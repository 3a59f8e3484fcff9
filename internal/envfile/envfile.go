// Package envfile loads KEY=VALUE files into the process environment.
package envfile

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPath returns the env file named by PASSBRIDGE_ENV_FILE, or .env.
func DefaultPath() string {
	if path := os.Getenv("PASSBRIDGE_ENV_FILE"); path != "" {
		return path
	}
	return ".env"
}

// Load sets every variable in path that is not already set. A missing file
// is not an error.
func Load(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			slog.Warn("invalid env line", "file", filepath.Base(path), "line", lineNum)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			slog.Warn("set env failed", "key", key, "error", err)
		}
	}
	return scanner.Err()
}

// Lookup returns the value of key, or def when it is unset or empty.
func Lookup(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
