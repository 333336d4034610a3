package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Structs

// Config holds all information parsed from the supplied TOML config
// file describing one replica's place in the cluster.
type Config struct {
	SiteID         string            `toml:"site_id"`
	ListenSyncAddr string            `toml:"listen_sync_addr"`
	PublicSyncAddr string            `toml:"public_sync_addr"`
	MetricsAddr    string            `toml:"metrics_addr"`
	Peers          map[string]string `toml:"peers"`
	Views          map[string]View   `toml:"views"`
	Store          *Store            `toml:"store"`
}

// View describes one replicated crdt value this replica hosts: which
// of the four kinds it is, and whether tombstone tracking is enabled
// for it.
type View struct {
	Kind         string `toml:"kind"`
	NoTombstones bool   `toml:"no_tombstones"`
}

// Store configures the optional Postgres-backed persistence layer
// used to durably checkpoint view snapshots. A nil *Store in Config
// means snapshots are kept in memory only.
type Store struct {
	IP       string `toml:"ip"`
	Port     uint16 `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	UseTLS   bool   `toml:"use_tls"`
}

// Recognized View.Kind values.
const (
	KindRegister = "register"
	KindSet      = "set"
	KindList     = "list"
	KindText     = "text"
)

// Functions

// LoadConfig takes in the path to a replica's main config file in
// TOML syntax and places the values from the file in the
// corresponding struct.
func LoadConfig(configFile string) (*Config, error) {

	conf := new(Config)

	if _, err := toml.DecodeFile(configFile, conf); err != nil {
		return nil, fmt.Errorf("failed to read in TOML config file at '%s': %v", configFile, err)
	}

	if conf.SiteID == "" {
		return nil, fmt.Errorf("config: site_id must not be empty")
	}

	for name, view := range conf.Views {
		switch view.Kind {
		case KindRegister, KindSet, KindList, KindText:
		default:
			return nil, fmt.Errorf("config: view '%s' has unrecognized kind '%s'", name, view.Kind)
		}
	}

	return conf, nil
}
