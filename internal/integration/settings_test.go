package integration

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_LoadMissing(t *testing.T) {
	s := NewConfigStore(filepath.Join(t.TempDir(), "webhook_config.json"))
	assert.Equal(t, Settings{}, s.Load())
}

func TestConfigStore_LoadCorrupt(t *testing.T) {
	for name, content := range map[string]string{
		"truncated":  `{"webhook_enabled": tr`,
		"wrong type": `{"webhook_enabled": "yes", "hubspot_enabled": true}`,
		"array":      `[true, "http://x"]`,
		"empty":      ``,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "webhook_config.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			var got Settings
			require.NotPanics(t, func() { got = NewConfigStore(path).Load() })
			assert.Equal(t, Settings{}, got)
		})
	}
}

func TestConfigStore_LoadDirectory(t *testing.T) {
	s := NewConfigStore(t.TempDir())
	assert.Equal(t, Settings{}, s.Load())
}

func TestConfigStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "webhook_config.json")
	s := NewConfigStore(path)

	want := Settings{WebhookEnabled: true, WebhookURL: "https://hooks.example.com/inv", HubSpotEnabled: true}
	require.True(t, s.Save(want))
	assert.Equal(t, want, s.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"webhook_enabled": true, "webhook_url": "https://hooks.example.com/inv", "hubspot_enabled": true}`, string(data))

	require.True(t, s.Save(Settings{}))
	assert.Equal(t, Settings{}, s.Load())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestConfigStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "webhook_config.json")
	require.NoError(t, os.Mkdir(target, 0o755))

	s := NewConfigStore(target)
	assert.False(t, s.Save(Settings{WebhookEnabled: true}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConfigStore_ConcurrentSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webhook_config.json")
	s := NewConfigStore(path)

	candidates := []Settings{
		{WebhookEnabled: true, WebhookURL: "https://a.example.com"},
		{HubSpotEnabled: true},
		{WebhookEnabled: true, WebhookURL: "https://b.example.com", HubSpotEnabled: true},
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.True(t, s.Save(candidates[i%len(candidates)]))
			_ = s.Load()
		}(i)
	}
	wg.Wait()

	assert.Contains(t, candidates, s.Load())
}

func TestSettings_WebhookActive(t *testing.T) {
	assert.False(t, Settings{}.WebhookActive())
	assert.False(t, Settings{WebhookEnabled: true}.WebhookActive())
	assert.False(t, Settings{WebhookURL: "https://x"}.WebhookActive())
	assert.True(t, Settings{WebhookEnabled: true, WebhookURL: "https://x"}.WebhookActive())
}
