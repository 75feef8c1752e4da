package config

import (
	"os"
	"strings"
)

// LoadEnv copies KEY=VALUE pairs from the first .env file found in the
// current or a parent directory into the process environment. Variables
// that are already set win. Returns the file used, or "" when none exists.
func LoadEnv() string {
	for _, envPath := range []string{".env", "../.env", "../../.env"} {
		data, err := os.ReadFile(envPath)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
			value = strings.Trim(strings.TrimSpace(value), `"'`)
			if _, set := os.LookupEnv(key); !set {
				os.Setenv(key, value)
			}
		}
		return envPath
	}
	return ""
}

// GetEnv gets an environment variable with a default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
