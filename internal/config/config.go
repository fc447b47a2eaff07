package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/beandash/beandash/internal/model"
)

// FileName is the default config file name.
const FileName = "beandash.yaml"

// Environment variables that override file settings.
const (
	EnvLedger     = "BEANDASH_LEDGER"
	EnvCurrency   = "BEANDASH_CURRENCY"
	EnvValuation  = "BEANDASH_VALUATION"
	EnvBeanQuery  = "BEANDASH_BEAN_QUERY"
	EnvBackendURL = "BEANDASH_BACKEND_URL"
	EnvAddr       = "BEANDASH_ADDR"
)

// Config represents the top-level beandash.yaml configuration.
type Config struct {
	Ledger    LedgerConfig    `yaml:"ledger"`
	BeanQuery BeanQueryConfig `yaml:"bean_query"`
	Backend   BackendConfig   `yaml:"backend"`
	Cache     CacheConfig     `yaml:"cache"`
	Server    ServerConfig    `yaml:"server"`
}

// LedgerConfig locates the ledger and sets how it is reported.
type LedgerConfig struct {
	Path      string `yaml:"path"`
	Currency  string `yaml:"currency"`
	Valuation string `yaml:"valuation"` // convert, cost or units
}

// BeanQueryConfig controls the bean-query subprocess.
type BeanQueryConfig struct {
	Binary  string        `yaml:"binary"`
	Timeout time.Duration `yaml:"timeout"`
}

// BackendConfig controls the journal backend. When URL is set an already
// running backend is used and nothing is spawned.
type BackendConfig struct {
	URL        string `yaml:"url,omitempty"`
	Python     string `yaml:"python"`
	Script     string `yaml:"script"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"` // 0 picks a free port
	Backups    bool   `yaml:"backups"`
	MaxBackups int    `yaml:"max_backups"`
}

// CacheConfig controls the persistent query cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Path    string        `yaml:"path"`
	TTL     time.Duration `yaml:"ttl"`
}

// ServerConfig controls the local JSON API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads a beandash.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a ledger.
func Default(ledgerPath string) *Config {
	return &Config{
		Ledger: LedgerConfig{
			Path:      ledgerPath,
			Currency:  "USD",
			Valuation: string(model.ValuationConvert),
		},
		BeanQuery: BeanQueryConfig{
			Binary:  "bean-query",
			Timeout: 30 * time.Second,
		},
		Backend: BackendConfig{
			Python:     "python3",
			Script:     "journal_api.py",
			Host:       "localhost",
			Port:       5001,
			Backups:    true,
			MaxBackups: 10,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    ".beandash-cache.db",
			TTL:     10 * time.Minute,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. A missing file is not an error. Variables already set win.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings from BEANDASH_* environment variables.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Ledger.Path, EnvLedger)
	set(&c.Ledger.Currency, EnvCurrency)
	set(&c.Ledger.Valuation, EnvValuation)
	set(&c.BeanQuery.Binary, EnvBeanQuery)
	set(&c.Backend.URL, EnvBackendURL)
	set(&c.Server.Addr, EnvAddr)
}

// Valuation returns the parsed valuation mode.
func (c *Config) Valuation() (model.ValuationMode, error) {
	return model.ParseValuationMode(c.Ledger.Valuation)
}

// BackendURL is the journal backend base URL.
func (c *Config) BackendURL() string {
	if c.Backend.URL != "" {
		return strings.TrimSuffix(c.Backend.URL, "/")
	}
	return "http://" + net.JoinHostPort(c.Backend.Host, strconv.Itoa(c.Backend.Port))
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	if _, err := c.Valuation(); err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(c.Ledger.Currency) == "" {
		problems = append(problems, "ledger.currency cannot be empty")
	}
	if c.BeanQuery.Timeout <= 0 {
		problems = append(problems, fmt.Sprintf("bean_query.timeout %s must be positive", c.BeanQuery.Timeout))
	}
	if c.Backend.URL == "" && (c.Backend.Port < 0 || c.Backend.Port > 65535) {
		problems = append(problems, fmt.Sprintf("backend.port %d must be between 0 and 65535", c.Backend.Port))
	}
	if c.Backend.MaxBackups < 0 {
		problems = append(problems, "backend.max_backups cannot be negative")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		problems = append(problems, fmt.Sprintf("cache.ttl %s must be positive", c.Cache.TTL))
	}
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		problems = append(problems, fmt.Sprintf("server.addr %q: %v", c.Server.Addr, err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
