package app

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	jwtSecretBytes   = 48
	defaultLocalPath = "./data/local.sqlite"
)

// runtimeDefault fills one setting when it is blank and reports whether it did.
type runtimeDefault struct {
	key   string
	apply func(*Config) (bool, error)
}

var runtimeDefaults = []runtimeDefault{
	{key: "auth.jwt.secret", apply: func(cfg *Config) (bool, error) {
		if strings.TrimSpace(cfg.Auth.JWT.Secret) != "" {
			return false, nil
		}
		secret, err := randomToken(jwtSecretBytes)
		if err != nil {
			return false, err
		}
		cfg.Auth.JWT.Secret = secret
		return true, nil
	}},
	{key: "local.path", apply: func(cfg *Config) (bool, error) {
		if strings.TrimSpace(cfg.Local.Path) != "" {
			return false, nil
		}
		cfg.Local.Path = defaultLocalPath
		return true, nil
	}},
	{key: "remote.driver", apply: func(cfg *Config) (bool, error) {
		if strings.TrimSpace(cfg.Remote.Driver) != "" {
			return false, nil
		}
		cfg.Remote.Driver = "sqlite"
		return true, nil
	}},
}

// ApplyRuntimeDefaults populates settings the service cannot start without.
// The returned set names generated keys; values are never included so the
// caller can log it safely.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	generated := make(map[string]bool)
	for _, def := range runtimeDefaults {
		applied, err := def.apply(cfg)
		if err != nil {
			return nil, fmt.Errorf("default %s: %w", def.key, err)
		}
		if applied {
			generated[def.key] = true
		}
	}
	return generated, nil
}

func randomToken(size int) (string, error) {
	if size <= 0 {
		return "", errors.New("token size must be positive")
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
