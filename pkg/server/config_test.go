package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comlink.yaml")
	content := `
server_name: testlink
port: 7000
data_dir: /var/lib/comlink
default_channel: Lobby
bridge_enabled: true
bridge_url: wss://hub.example.net/relay
bridge_secret: s3cret
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := LoadConf(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ServerName != "testlink" || c.Port != 7000 || c.DefaultChannel != "Lobby" {
		t.Errorf("overrides lost: %+v", c)
	}
	if !c.BridgeEnabled || c.BridgeURL != "wss://hub.example.net/relay" {
		t.Errorf("bridge config lost: %+v", c)
	}
	// Untouched keys keep their defaults.
	if c.PrefsDB != "prefs.db" || !c.AllowCreate {
		t.Errorf("defaults clobbered: %+v", c)
	}
}

func TestLoadConfMissingFile(t *testing.T) {
	if _, err := LoadConf(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file did not error")
	}
}

func TestConfPathResolution(t *testing.T) {
	c := DefaultConf()
	c.DataDir = "/srv/comlink"
	if got := c.PrefsPath(); got != "/srv/comlink/prefs.db" {
		t.Errorf("prefs path = %q", got)
	}
	c.HistoryDB = "/elsewhere/history.db"
	if got := c.HistoryPath(); got != "/elsewhere/history.db" {
		t.Errorf("absolute path rewritten: %q", got)
	}
}
