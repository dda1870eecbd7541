// Package credentials materialises the base64 service-account blob on disk and
// points Application Default Credentials at it.
package credentials

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvVar is the variable Google client libraries read the key file path from.
const EnvVar = "GOOGLE_APPLICATION_CREDENTIALS"

// ErrMissingCredentials is returned when no encoded credential was provided.
var ErrMissingCredentials = errors.New("missing GOOGLE_APPLICATION_CREDENTIALS_B64")

// Bootstrap decodes encoded into path and exports EnvVar. It returns the path
// written.
func Bootstrap(encoded, path string) (string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return "", ErrMissingCredentials
	}
	if path == "" {
		return "", fmt.Errorf("credentials path is required")
	}

	data, err := decode(encoded)
	if err != nil {
		return "", fmt.Errorf("decode credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create credentials dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Setenv(EnvVar, path); err != nil {
		return "", fmt.Errorf("set %s: %w", EnvVar, err)
	}
	return path, nil
}

// decode accepts padded and unpadded standard base64.
func decode(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err == nil {
		return data, nil
	}
	raw, rawErr := base64.RawStdEncoding.DecodeString(encoded)
	if rawErr != nil {
		return nil, err
	}
	return raw, nil
}
