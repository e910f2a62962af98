// Package config loads the lotscan configuration file.
//
// The file is JSONC (JSON with comments), stripped with
// github.com/tidwall/jsonc before parsing with encoding/json, so operators
// can annotate station settings in place. Fields left out of the file keep
// their defaults, and a missing default file is not an error.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/mmr-tortoise/lotscan/internal/lot"
	"github.com/mmr-tortoise/lotscan/internal/model"
)

const (
	// DefaultServer is the inventory API the original stations talk to.
	DefaultServer = "https://api-bpe.mscapi.live"

	// DefaultListenPort is the first port tried by "lotscan serve".
	DefaultListenPort = 8765

	// DefaultRequestTimeout bounds every inventory API call.
	DefaultRequestTimeout = 15 * time.Second

	// EnvServer overrides Config.Server.
	EnvServer = "LOTSCAN_SERVER"

	// EnvOutputDir overrides Config.OutputDir.
	EnvOutputDir = "LOTSCAN_OUTPUT_DIR"

	appDir   = "lotscan"
	fileName = "config.jsonc"
)

// Config is the station configuration.
type Config struct {
	// Server is the base URL of the inventory API.
	Server string `json:"server"`

	// OutputDir receives exported workbooks and rendered labels.
	OutputDir string `json:"outputDir"`

	// Identifier is the kind of token scanned: "serial" or "imei".
	Identifier string `json:"identifier"`

	// LotSize is the maximum number of tokens per lot.
	LotSize int `json:"lotSize"`

	// Mode is "single" (one token per entry) or "paste" (digit blocks).
	Mode string `json:"mode"`

	// DuplicateScope is "lot" or "session".
	DuplicateScope string `json:"duplicateScope"`

	// RequestTimeout is a Go duration string, e.g. "15s".
	RequestTimeout string `json:"requestTimeout"`

	// ListenPort is the preferred port of the local HTTP endpoint.
	ListenPort int `json:"listenPort"`

	// Station names this machine in exported document properties.
	// Empty means the host name.
	Station string `json:"station,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Server:         DefaultServer,
		OutputDir:      filepath.Join(home, appDir, "output"),
		Identifier:     model.KindSerial.String(),
		LotSize:        lot.DefaultMaxSize,
		Mode:           model.ModeSingle.String(),
		DuplicateScope: model.ScopeLot.String(),
		RequestTimeout: DefaultRequestTimeout.String(),
		ListenPort:     DefaultListenPort,
	}
}

// DefaultPath returns <UserConfigDir>/lotscan/config.jsonc.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, appDir, fileName), nil
}

// Load reads the configuration. An empty path means DefaultPath, where a
// missing file silently yields defaults; an explicit path must exist.
// Environment overrides are applied last and the result is validated.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError, "cannot resolve config path", err)
		}
		path = p
	}

	cfg, err := LoadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg = Default()
		} else if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("config file not found: %s", path), err)
		} else {
			return nil, model.WrapCLIError(model.ExitConfigError, "cannot load configuration", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid configuration", err)
	}
	return cfg, nil
}

// LoadFile parses one JSONC file over the defaults. The returned error
// satisfies os.IsNotExist when the file is missing.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up with
// getenv. Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvServer); v != "" {
		c.Server = v
	}
	if v := getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("config: server must not be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("config: outputDir must not be empty")
	}
	if _, err := model.ParseIdentifierKind(c.Identifier); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := model.ParseIngestMode(c.Mode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := model.ParseDuplicateScope(c.DuplicateScope); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.LotSize < 1 {
		return fmt.Errorf("config: lotSize must be at least 1, got %d", c.LotSize)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		return fmt.Errorf("config: listenPort %d is out of range", c.ListenPort)
	}
	return nil
}

// Timeout parses RequestTimeout.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: invalid requestTimeout %q: %w", c.RequestTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: requestTimeout must be positive, got %s", d)
	}
	return d, nil
}

// LotConfig converts the scanning fields into lot rules. It assumes
// Validate has passed.
func (c *Config) LotConfig() lot.Config {
	kind, _ := model.ParseIdentifierKind(c.Identifier)
	mode, _ := model.ParseIngestMode(c.Mode)
	scope, _ := model.ParseDuplicateScope(c.DuplicateScope)
	return lot.Config{
		Kind:           kind,
		MaxSize:        c.LotSize,
		Mode:           mode,
		DuplicateScope: scope,
	}
}

// StationName returns Station, falling back to the host name.
func (c *Config) StationName() string {
	if c.Station != "" {
		return c.Station
	}
	name, err := os.Hostname()
	if err != nil {
		return "lotscan"
	}
	return name
}
