// Package backend starts and stops the local journal backend process.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/pigeonworks-llc/go-portalloc/pkg/ports"

	"github.com/beandash/beandash/internal/journalapi"
)

// Options configure the backend command line.
type Options struct {
	Python     string // interpreter; defaults to python3
	Script     string // path to journal_api.py
	Ledger     string
	Host       string
	Port       int // 0 picks a free port
	NoBackup   bool
	MaxBackups int

	StartTimeout time.Duration // how long to wait for /health
	Output       io.Writer     // backend stdout and stderr; defaults to os.Stderr
	Logger       *slog.Logger
}

// Args returns the interpreter arguments.
func (o Options) Args() []string {
	args := []string{o.Script, o.Ledger, "--port", strconv.Itoa(o.Port), "--host", o.Host}
	if o.NoBackup {
		args = append(args, "--no-backup")
	}
	if o.MaxBackups > 0 {
		args = append(args, "--max-backups", strconv.Itoa(o.MaxBackups))
	}
	return args
}

// URL is the base URL the backend listens on.
func (o Options) URL() string {
	return "http://" + net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Process is a running backend.
type Process struct {
	cmd    *exec.Cmd
	url    string
	client *journalapi.Client
	done   chan struct{}
	err    error
	log    *slog.Logger
}

// Start launches the backend and blocks until it answers /health, the
// process exits, or StartTimeout passes.
func Start(ctx context.Context, opts Options) (*Process, error) {
	if opts.Script == "" {
		return nil, errors.New("backend script not configured")
	}
	if opts.Python == "" {
		opts.Python = "python3"
	}
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.Port == 0 {
		port, err := ports.NewAllocator(nil).AllocateRange(1)
		if err != nil {
			return nil, fmt.Errorf("allocating backend port: %w", err)
		}
		opts.Port = int(port)
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = 15 * time.Second
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	cmd := exec.Command(opts.Python, opts.Args()...)
	cmd.Stdout = opts.Output
	cmd.Stderr = opts.Output
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start backend: %w", err)
	}
	log.Info("journal backend starting", "pid", cmd.Process.Pid, "url", opts.URL())

	p := &Process{
		cmd:    cmd,
		url:    opts.URL(),
		client: journalapi.NewClient(opts.URL()),
		done:   make(chan struct{}),
		log:    log,
	}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()

	if err := p.waitReady(ctx, opts.StartTimeout); err != nil {
		_ = p.kill()
		return nil, err
	}
	log.Info("journal backend ready", "url", opts.URL())
	return p, nil
}

// URL is the base URL the backend listens on.
func (p *Process) URL() string {
	return p.url
}

// Client returns a client bound to this backend.
func (p *Process) Client() *journalapi.Client {
	return p.client
}

// Done is closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

func (p *Process) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		hctx, hcancel := context.WithTimeout(ctx, time.Second)
		_, err := p.client.Health(hctx)
		hcancel()
		if err == nil {
			return nil
		}

		select {
		case <-p.done:
			return fmt.Errorf("backend exited before becoming ready: %w", p.exitErr())
		case <-ctx.Done():
			return fmt.Errorf("backend not ready after %s: %w", timeout, err)
		case <-tick.C:
		}
	}
}

func (p *Process) exitErr() error {
	if p.err == nil {
		return errors.New("exit status 0")
	}
	return p.err
}

// Shutdown interrupts the backend and waits for it to exit. The process is
// killed if ctx ends first.
func (p *Process) Shutdown(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := p.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.log.Warn("interrupting journal backend failed, killing", "error", err)
		return p.kill()
	}
	select {
	case <-p.done:
	case <-ctx.Done():
		return p.kill()
	}

	// A non-zero exit after the interrupt is expected.
	var exitErr *exec.ExitError
	if p.err != nil && !errors.As(p.err, &exitErr) {
		return p.err
	}
	return nil
}

func (p *Process) kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill backend: %w", err)
	}
	<-p.done
	return nil
}
