package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/beandash/beandash/internal/backend"
	"github.com/beandash/beandash/internal/beanquery"
	"github.com/beandash/beandash/internal/config"
	"github.com/beandash/beandash/internal/controller"
	"github.com/beandash/beandash/internal/journalapi"
	"github.com/beandash/beandash/internal/model"
	"github.com/beandash/beandash/internal/querycache"
)

const (
	configFileHint = config.FileName
	envFile        = ".env"

	backendStopTimeout = 5 * time.Second
)

// app is the wiring shared by commands that read the ledger.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	runner  beanquery.Runner
	cache   *querycache.Cache
	caching *beanquery.CachingRunner // nil when the cache is off
}

// loadConfig reads .env, the config file and BEANDASH_* overrides. Without
// --config a missing ./beandash.yaml falls back to defaults.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	path := o.configPath
	explicit := path != ""
	if !explicit {
		path = config.FileName
	}

	cfg, err := config.Load(path)
	switch {
	case err == nil:
		resolvePaths(cfg, filepath.Dir(path))
	case !explicit && errors.Is(err, os.ErrNotExist):
		cfg = config.Default("")
	default:
		return nil, err
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolvePaths makes file paths in the config relative to its directory.
func resolvePaths(cfg *config.Config, dir string) {
	for _, p := range []*string{&cfg.Ledger.Path, &cfg.Cache.Path, &cfg.Backend.Script} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// open loads the config and builds the bean-query runner, backed by the
// persistent cache when enabled.
func (o *rootOptions) open() (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Ledger.Path == "" {
		return nil, fmt.Errorf("no ledger configured: set ledger.path in %s or %s", config.FileName, config.EnvLedger)
	}

	log := slog.Default()
	execRunner := beanquery.NewExecRunner(cfg.BeanQuery.Binary, cfg.Ledger.Path, cfg.BeanQuery.Timeout)
	execRunner.Logger = log

	a := &app{cfg: cfg, log: log, runner: execRunner}
	if cfg.Cache.Enabled {
		c, err := querycache.Open(cfg.Cache.Path, cfg.Cache.TTL)
		if err != nil {
			log.Warn("query cache disabled", "path", cfg.Cache.Path, "error", err)
		} else {
			a.cache = c
			a.caching = &beanquery.CachingRunner{Next: execRunner, Ledger: execRunner, Cache: c, Logger: log}
			a.runner = a.caching
		}
	}
	return a, nil
}

// Close releases the query cache.
func (a *app) Close() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}

// valuation is the configured mode; the config has already been validated.
func (a *app) valuation() model.ValuationMode {
	mode, _ := a.cfg.Valuation()
	return mode
}

// newJournal builds the journal view. Writes drop the cached account list
// and, when enabled, the persistent query cache.
func (a *app) newJournal(backend controller.JournalBackend, accts *controller.Accounts) *controller.Journal {
	c := controller.NewJournal(backend, accts.Source, a.log).WithInvalidators(accts)
	if a.caching != nil {
		c.WithInvalidators(a.caching)
	}
	return c
}

// journalBackend connects to the configured journal backend, starting one
// when no URL is set. stop must be called when the caller is done.
func (a *app) journalBackend(ctx context.Context) (client *journalapi.Client, stop func(), err error) {
	if a.cfg.Backend.URL != "" {
		return journalapi.NewClient(a.cfg.BackendURL()), func() {}, nil
	}

	p, err := backend.Start(ctx, backend.Options{
		Python:     a.cfg.Backend.Python,
		Script:     a.cfg.Backend.Script,
		Ledger:     a.cfg.Ledger.Path,
		Host:       a.cfg.Backend.Host,
		Port:       a.cfg.Backend.Port,
		NoBackup:   !a.cfg.Backend.Backups,
		MaxBackups: a.cfg.Backend.MaxBackups,
		Logger:     a.log,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("starting journal backend: %w", err)
	}
	stop = func() {
		ctx, cancel := context.WithTimeout(context.Background(), backendStopTimeout)
		defer cancel()
		if err := p.Shutdown(ctx); err != nil {
			a.log.Warn("journal backend shutdown", "error", err)
		}
	}
	return p.Client(), stop, nil
}
