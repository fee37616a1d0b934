// Package secrets resolves API tokens and passwords from files, environment
// variables or inline config values.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where a secret may come from. File wins over Env, Env
// wins over Value.
type Source struct {
	// Name is used in error messages.
	Name string
	// Value is an inline secret from the config.
	Value string
	// Env names an environment variable holding the secret. A .env file is
	// loaded into the environment at startup.
	Env string
	// File points to a file containing the secret.
	File string
}

// Load returns the trimmed secret of the first configured location.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	if src.Env != "" {
		return "", fmt.Errorf("%s is not configured (%s is empty)", name, src.Env)
	}
	return "", fmt.Errorf("%s is not configured", name)
}
