package config

import (
	"fmt"
	"strconv"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all config key/value pairs from the current config.
// Secret values are masked.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		v := fmt.Sprintf("%v", s.extract(cfg))
		if s.secret {
			v = mask(v)
		}
		result = append(result, KeyInfo{Key: s.key, EnvVar: s.env, Value: v})
	}
	return result
}

func mask(v string) string {
	if v == "" {
		return "(not set)"
	}
	return "(set)"
}

// SetKey writes a config key to the config file. Secret keys go to the
// secrets file instead.
func SetKey(key, value string) error {
	return setKey(newPlatformBackend(), secretsFile{path: secretsFilePath()}, key, value)
}

type secretWriter interface {
	Set(service, account, value string) error
}

func setKey(b ConfigBackend, sw secretWriter, key, value string) error {
	s, ok := lookup(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		return sw.Set("tutorgw", s.account, value)
	}
	switch s.typ {
	case kInt:
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		return b.SetInt(key, i)
	default:
		return b.SetString(key, value)
	}
}

// ValidKeys returns every config key name.
func ValidKeys() []string {
	keys := make([]string, 0, len(specs))
	for _, s := range specs {
		keys = append(keys, s.key)
	}
	return keys
}

// IsSecret reports whether key is stored in the secrets file.
func IsSecret(key string) bool {
	s, ok := lookup(key)
	return ok && s.secret
}
