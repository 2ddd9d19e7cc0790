package server

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Conf holds server-level configuration parameters.
type Conf struct {
	// --- Identity ---
	ServerName string `yaml:"server_name"`
	Port       int    `yaml:"port"`
	BindAddr   string `yaml:"bind_addr"`
	TLSCert    string `yaml:"tls_cert"` // PEM cert; with tls_key, wraps the listener
	TLSKey     string `yaml:"tls_key"`

	// --- Data ---
	DataDir      string `yaml:"data_dir"`
	PrefsDB      string `yaml:"prefs_db"`      // bbolt file, relative to data_dir
	ChannelsFile string `yaml:"channels_file"` // channel definitions, hot-reloaded

	// --- Accounts ---
	AllowCreate  bool `yaml:"allow_create"`  // allow new accounts at the login prompt
	PermsEnabled bool `yaml:"perms_enabled"` // false = every channel is open to everyone

	// --- Chat ---
	DefaultChannel string `yaml:"default_channel"`
	IdleTimeout    int    `yaml:"idle_timeout"` // seconds, 0 = never

	// --- History ---
	HistoryEnabled   bool   `yaml:"history_enabled"`
	HistoryDB        string `yaml:"history_db"`        // SQLite file, relative to data_dir
	HistoryRetention int    `yaml:"history_retention"` // seconds, 0 = keep forever

	// --- Community bridge ---
	BridgeEnabled bool   `yaml:"bridge_enabled"`
	BridgeURL     string `yaml:"bridge_url"`     // wss:// endpoint of the community hub
	BridgeSecret  string `yaml:"bridge_secret"`  // shared JWT signing secret
	BridgeChannel string `yaml:"bridge_channel"` // local channel mirrored to the hub
	JWTExpiry     int    `yaml:"jwt_expiry"`     // handshake token lifetime in seconds

	// --- Metrics ---
	MetricsEnabled bool `yaml:"metrics_enabled"`
	MetricsPort    int  `yaml:"metrics_port"`

	// --- Mail ---
	MailEnabled    bool `yaml:"mail_enabled"`
	MailExpiration int  `yaml:"mail_expiration"` // days before auto-expire, 0 = never
}

// DefaultConf returns a Conf with workable defaults.
func DefaultConf() *Conf {
	return &Conf{
		ServerName:       "comlink",
		Port:             6250,
		DataDir:          "data",
		PrefsDB:          "prefs.db",
		ChannelsFile:     "channels.yaml",
		AllowCreate:      true,
		PermsEnabled:     true,
		DefaultChannel:   "General",
		IdleTimeout:      3600,
		HistoryEnabled:   true,
		HistoryDB:        "history.db",
		HistoryRetention: 86400 * 7,
		BridgeChannel:    "Community",
		JWTExpiry:        300,
		MetricsEnabled:   false,
		MetricsPort:      9155,
		MailEnabled:      true,
		MailExpiration:   30,
	}
}

// LoadConf loads a YAML config file over the defaults.
func LoadConf(path string) (*Conf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	c := DefaultConf()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	return c, nil
}

// PrefsPath returns the resolved path of the preference store file.
func (c *Conf) PrefsPath() string {
	return c.resolve(c.PrefsDB)
}

// HistoryPath returns the resolved path of the history database file.
func (c *Conf) HistoryPath() string {
	return c.resolve(c.HistoryDB)
}

// ChannelsPath returns the resolved path of the channel definitions file.
func (c *Conf) ChannelsPath() string {
	return c.resolve(c.ChannelsFile)
}

func (c *Conf) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}
