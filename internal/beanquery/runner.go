// Package beanquery runs queries against a beancount ledger through the
// bean-query command-line tool.
package beanquery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/beandash/beandash/internal/querycache"
)

// DefaultBinary is the bean-query executable looked up on PATH.
const DefaultBinary = "bean-query"

// DefaultTimeout bounds a single query.
const DefaultTimeout = 30 * time.Second

// Runner executes a query and returns its CSV output.
type Runner interface {
	Query(ctx context.Context, query string) (string, error)
}

// ExecRunner shells out to bean-query.
type ExecRunner struct {
	Binary     string
	LedgerPath string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// NewExecRunner creates an ExecRunner with defaults for empty fields.
func NewExecRunner(binary, ledgerPath string, timeout time.Duration) *ExecRunner {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{Binary: binary, LedgerPath: ledgerPath, Timeout: timeout, Logger: slog.Default()}
}

// Query runs `bean-query -f csv <ledger> <query>`.
func (r *ExecRunner) Query(ctx context.Context, query string) (string, error) {
	if r.LedgerPath == "" {
		return "", errors.New("no ledger file configured")
	}
	if _, err := os.Stat(r.LedgerPath); err != nil {
		return "", fmt.Errorf("ledger file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.Binary, "-f", "csv", r.LedgerPath, query)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	r.logger().Debug("bean-query", "query", query, "duration", time.Since(start), "error", err)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("bean-query timed out after %s: %w", r.Timeout, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("bean-query: %w", err)
		}
		return "", fmt.Errorf("bean-query: %s: %w", msg, err)
	}
	return stdout.String(), nil
}

// LedgerModTime returns the newest modification time over the ledger and
// the files it includes.
func (r *ExecRunner) LedgerModTime() (time.Time, error) {
	files, err := IncludedFiles(r.LedgerPath)
	if err != nil {
		return time.Time{}, fmt.Errorf("ledger files: %w", err)
	}
	return newestModTime(files)
}

func (r *ExecRunner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// ModTimer reports the ledger modification time used to validate cached
// results.
type ModTimer interface {
	LedgerModTime() (time.Time, error)
}

// CachingRunner serves repeated queries from a persistent cache until the
// ledger changes.
type CachingRunner struct {
	Next   Runner
	Ledger ModTimer
	Cache  *querycache.Cache
	Logger *slog.Logger
}

// Query returns a cached result when fresh, otherwise runs Next and
// stores its output. Cache failures are logged and never fail the query.
func (c *CachingRunner) Query(ctx context.Context, query string) (string, error) {
	log := c.logger()

	mod, err := c.Ledger.LedgerModTime()
	if err != nil {
		return c.Next.Query(ctx, query)
	}

	out, err := c.Cache.Get(query, mod)
	if err == nil {
		log.Debug("query cache hit", "query", query)
		return out, nil
	}
	if !errors.Is(err, querycache.ErrMiss) {
		log.Warn("query cache read failed", "error", err)
	}

	out, err = c.Next.Query(ctx, query)
	if err != nil {
		return "", err
	}
	if err := c.Cache.Put(query, mod, out); err != nil {
		log.Warn("query cache write failed", "error", err)
	}
	return out, nil
}

// Invalidate drops every cached result.
func (c *CachingRunner) Invalidate() error {
	if err := c.Cache.Purge(); err != nil {
		return fmt.Errorf("purging query cache: %w", err)
	}
	c.logger().Debug("query cache purged")
	return nil
}

func (c *CachingRunner) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
