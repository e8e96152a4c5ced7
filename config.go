package bdgt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const configFile = "config.json"

// config is the per-root budget configuration, persisted as JSON next to
// the ledger database. It never contains secrets.
type config struct {
	// InstanceID identifies this device in merge metadata.
	InstanceID string `json:"instance_id"`
	// KeyID designates the identity key protecting the master key.
	KeyID string `json:"key_id"`
	// RemoteURL is the sync remote, empty when sync is not set up.
	RemoteURL string `json:"remote_url,omitempty"`
}

// readConfig loads the configuration from root. A missing file means the
// root holds no budget.
func readConfig(root string) (config, error) {
	var c config
	data, err := os.ReadFile(filepath.Join(root, configFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, ErrNotInitialized
		}
		return c, fmt.Errorf("reading configuration: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("reading configuration: %w", err)
	}
	return c, nil
}

func writeConfig(root string, c config) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(root, configFile), data, 0600); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}
	return nil
}
