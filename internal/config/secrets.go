package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func secretsFilePath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "secrets.json")
}

// secretsFile holds API keys outside the main config file, keyed by service
// then account.
type secretsFile struct {
	path string
}

func (f secretsFile) Get(service, account string) (string, error) {
	secrets, err := f.read()
	if err != nil {
		return "", err
	}
	svc, ok := secrets[service]
	if !ok {
		return "", fmt.Errorf("service %q not found", service)
	}
	val, ok := svc[account]
	if !ok {
		return "", fmt.Errorf("account %q not found in service %q", account, service)
	}
	return val, nil
}

func (f secretsFile) Set(service, account, value string) error {
	secrets, err := f.read()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if secrets == nil {
		secrets = make(map[string]map[string]string)
	}
	if secrets[service] == nil {
		secrets[service] = make(map[string]string)
	}
	secrets[service][account] = value

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, out, 0o600)
}

func (f secretsFile) read() (map[string]map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}
