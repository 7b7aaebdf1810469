// Package config loads the service configuration.
//
// Example (~/.pinas/config.yaml):
//
//	server:
//	  host: 127.0.0.1
//	  port: 1234
//	  connection_timeout: 1m
//	ssh:
//	  port: 22
//	  dial_timeout: 10s
//	download:
//	  dir: ~/Downloads
//	  conflict: rename
//
// A missing file at the default location yields the defaults. Environment
// variables override the file, see env.go.
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"pinas/logging"
)

const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 1234
	DefaultConnectionTimeout = time.Minute
	DefaultSSHPort           = 22
	DefaultDialTimeout       = 10 * time.Second

	ConflictOverwrite = "overwrite"
	ConflictRename    = "rename"
	ConflictSkip      = "skip"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	SSH      SSHConfig      `yaml:"ssh"`
	Download DownloadConfig `yaml:"download"`
	Listing  ListingConfig  `yaml:"listing"`
	Local    LocalConfig    `yaml:"local"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	warnings []string
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ConnectionTimeout closes websocket sessions that stayed idle this long.
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

type SSHConfig struct {
	Port        int           `yaml:"port"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

type DownloadConfig struct {
	Dir      string `yaml:"dir"`
	Conflict string `yaml:"conflict"`
}

type ListingConfig struct {
	ShowHidden bool `yaml:"show_hidden"`
}

// LocalConfig exposes a directory of this machine as an extra connection.
type LocalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Root    string `yaml:"root"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{
			Host:              DefaultHost,
			Port:              DefaultPort,
			ConnectionTimeout: DefaultConnectionTimeout,
		},
		SSH: SSHConfig{
			Port:        DefaultSSHPort,
			DialTimeout: DefaultDialTimeout,
		},
		Download: DownloadConfig{
			Dir:      filepath.Join(home, "Downloads"),
			Conflict: ConflictOverwrite,
		},
		Local: LocalConfig{Root: home},
		Log:   LogConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// DefaultPath returns ~/.pinas/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get user home dir")
	}
	return filepath.Join(home, ".pinas", "config.yaml"), nil
}

// Load reads the configuration from path, or from DefaultPath when path is
// empty. Only a missing file at the default location is tolerated. It
// returns the path that was used.
func Load(path string) (*Config, string, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}

	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, "", errors.Wrapf(err, "parse yaml config %s", path)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, "", errors.Wrapf(err, "read config file %s", path)
	}

	applyEnv(cfg)
	cfg.Download.Dir = expandHome(cfg.Download.Dir)
	cfg.Local.Root = expandHome(cfg.Local.Root)

	if err := cfg.Validate(); err != nil {
		return nil, "", errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, path, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Host) == "" {
		return errors.New("server.host is empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.ConnectionTimeout <= 0 {
		return errors.Errorf("server.connection_timeout %s must be positive", c.Server.ConnectionTimeout)
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return errors.Errorf("ssh.port %d out of range", c.SSH.Port)
	}
	if c.SSH.DialTimeout <= 0 {
		return errors.Errorf("ssh.dial_timeout %s must be positive", c.SSH.DialTimeout)
	}
	if strings.TrimSpace(c.Download.Dir) == "" {
		return errors.New("download.dir is empty")
	}
	if !slices.Contains([]string{ConflictOverwrite, ConflictRename, ConflictSkip}, c.Download.Conflict) {
		return errors.Errorf("download.conflict %q is not one of overwrite, rename, skip", c.Download.Conflict)
	}
	if c.Local.Enabled && !filepath.IsAbs(c.Local.Root) {
		return errors.Errorf("local.root %q must be absolute", c.Local.Root)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	if !slices.Contains([]string{"", logging.FormatConsole, logging.FormatJSON}, c.Log.Format) {
		return errors.Errorf("log.format %q is not one of console, json", c.Log.Format)
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
