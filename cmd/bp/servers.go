package main

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// ServersConfig holds all named server profiles and tracks which one is active.
type ServersConfig struct {
	Active  string            `toml:"active"`
	Servers map[string]Server `toml:"servers"`
}

// Server is a named Develocity server profile.
type Server struct {
	URL         string `toml:"url"`
	AccessKey   string `toml:"access_key,omitempty"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

func serversConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "buildproc")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "servers.toml"), nil
}

func loadServersConfig() (ServersConfig, error) {
	path, err := serversConfigPath()
	if err != nil {
		return ServersConfig{}, err
	}
	var sc ServersConfig
	if _, err := toml.DecodeFile(path, &sc); err != nil {
		if os.IsNotExist(err) {
			return ServersConfig{Servers: map[string]Server{}}, nil
		}
		return ServersConfig{}, err
	}
	if sc.Servers == nil {
		sc.Servers = map[string]Server{}
	}
	return sc, nil
}

func saveServersConfig(sc ServersConfig) error {
	path, err := serversConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(sc)
}

// Active server profile, loaded once per process.
var (
	serverOnce   sync.Once
	activeServer Server
)

func loadActiveServerOnce() {
	serverOnce.Do(func() {
		sc, err := loadServersConfig()
		if err != nil || sc.Active == "" {
			return
		}
		activeServer = sc.Servers[sc.Active]
	})
}

func activeServerURL() string       { loadActiveServerOnce(); return activeServer.URL }
func activeServerAccessKey() string { loadActiveServerOnce(); return activeServer.AccessKey }
func activeServerNATSURL() string   { loadActiveServerOnce(); return activeServer.NATSURL }

// mask hides all but the first few characters of a secret.
func mask(secret string, visible int, fill string) string {
	if len(secret) <= visible {
		return secret
	}
	return secret[:visible] + fill
}
