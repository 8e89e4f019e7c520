package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Lookup resolves a secret from <KEY>_FILE (Docker secrets style) or <KEY>.
// found is false when neither is set.
func Lookup(envKey string) (value string, found bool, err error) {
	if filePath := os.Getenv(envKey + "_FILE"); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", false, fmt.Errorf("read secret file %s: %w", filePath, err)
		}
		return strings.TrimSpace(string(data)), true, nil
	}

	if value := os.Getenv(envKey); value != "" {
		return value, true, nil
	}

	return "", false, nil
}

// GetOptionalSecret returns the secret, or defaultValue when it is unset or unreadable
func GetOptionalSecret(envKey string, defaultValue string) string {
	value, found, err := Lookup(envKey)
	if err != nil || !found {
		return defaultValue
	}
	return value
}
