// Package integration fans an extracted invoice out to the CRM and webhook
// sinks. Sink failures are logged and recorded, never returned to callers.
package integration

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Settings is the persisted integration configuration.
type Settings struct {
	WebhookEnabled bool   `json:"webhook_enabled"`
	WebhookURL     string `json:"webhook_url"`
	HubSpotEnabled bool   `json:"hubspot_enabled"`
}

// WebhookActive reports whether the webhook sink should run.
func (s Settings) WebhookActive() bool {
	return s.WebhookEnabled && s.WebhookURL != ""
}

// ConfigStore persists Settings as a JSON document. Reads never fail: a
// missing or unreadable document loads as all-disabled.
type ConfigStore struct {
	path string
	mu   sync.Mutex
}

// NewConfigStore returns a store backed by path.
func NewConfigStore(path string) *ConfigStore {
	return &ConfigStore{path: path}
}

// Path returns the backing file path.
func (s *ConfigStore) Path() string {
	return s.path
}

// Load reads the current settings.
func (s *ConfigStore) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("integration: read settings, using defaults", zap.String("path", s.path), zap.Error(err))
		}
		return Settings{}
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		zap.L().Warn("integration: parse settings, using defaults", zap.String("path", s.path), zap.Error(err))
		return Settings{}
	}
	return settings
}

// Save replaces the persisted settings. The document is written to a
// temporary file and renamed into place. Failures are logged and reported
// as false.
func (s *ConfigStore) Save(settings Settings) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(settings); err != nil {
		zap.L().Error("integration: save settings", zap.String("path", s.path), zap.Error(err))
		return false
	}
	zap.L().Info("integration: settings saved",
		zap.Bool("webhook_enabled", settings.WebhookEnabled),
		zap.Bool("hubspot_enabled", settings.HubSpotEnabled),
	)
	return true
}

func (s *ConfigStore) write(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return eris.Wrap(err, "integration: marshal settings")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "integration: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "integration: create temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "integration: write temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "integration: sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "integration: close temp file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return eris.Wrapf(err, "integration: rename into %s", s.path)
	}
	return nil
}
