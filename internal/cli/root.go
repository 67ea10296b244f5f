// Package cli implements the tbd command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	cfotel "github.com/Strob0t/tbd/internal/adapter/otel"
	"github.com/Strob0t/tbd/internal/config"
	"github.com/Strob0t/tbd/internal/logger"
	"github.com/Strob0t/tbd/internal/port/broadcast"
	"github.com/Strob0t/tbd/internal/port/messagequeue"
	"github.com/Strob0t/tbd/internal/resilience"
	"github.com/Strob0t/tbd/internal/service"
)

// app carries state shared by all commands of one invocation.
type app struct {
	cfgPath string
	cfg     *config.Config

	in  io.Reader
	out io.Writer
	loc *time.Location

	// isTerminal reports whether input is interactive.
	isTerminal func() bool

	// queue is the connected publisher, set by openService when events
	// go to NATS.
	queue messagequeue.Queue

	closers []func(context.Context)
}

func (a *app) printer() printer { return printer{w: a.out, loc: a.loc} }

// NewRootCmd builds the tbd command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{loc: time.Local, isTerminal: stdinIsTerminal})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tbd",
		Short: "tbd - a personal task log with randomly activated pooled tasks",
		Long: `tbd keeps two kinds of tasks: active tasks with a due date, and pooled
tasks that may be picked at random once their cool down has passed.

Every change is recorded in an append-only log that is saved with the tasks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", config.DefaultConfigFile, "path to the YAML config file")

	root.AddCommand(
		newActiveCmd(a),
		newPoolCmd(a),
		newLogCmd(a),
		newDoneCmd(a),
		newActivateCmd(a),
		newMenuCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute(version string) error {
	root := NewRootCmd()
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// setup loads configuration and installs logging and telemetry. Logs go to
// stderr so stdout carries only command output.
func (a *app) setup(cmd *cobra.Command) error {
	if a.in == nil {
		a.in = cmd.InOrStdin()
	}
	if a.out == nil {
		a.out = cmd.OutOrStdout()
	}

	cfg, err := config.LoadFrom(a.cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg

	log, closer := logger.New(cfg.Logging, cmd.ErrOrStderr())
	slog.SetDefault(log)
	a.closers = append(a.closers, func(context.Context) { closer.Close() })

	shutdown, err := cfotel.Setup(cmd.Context(), cfg.OTEL)
	if err != nil {
		a.teardown(cmd.Context())
		return fmt.Errorf("otel: %w", err)
	}
	a.closers = append(a.closers, func(ctx context.Context) {
		if err := shutdown(ctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	})
	return nil
}

func (a *app) teardown(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
	a.closers = nil
}

// run wraps a command body with setup, and releases everything registered
// during the command when it returns.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.setup(cmd); err != nil {
			return err
		}
		defer a.teardown(cmd.Context())
		return fn(cmd, args)
	}
}

// onClose registers cleanup to run after the command finishes.
func (a *app) onClose(fn func(context.Context)) {
	a.closers = append(a.closers, fn)
}

// openService connects the configured backend and returns a service with
// the snapshot at the configured location loaded. A missing snapshot
// yields an empty log. hub may be nil.
func (a *app) openService(ctx context.Context, hub broadcast.Broadcaster) (*service.TaskLogService, error) {
	b, err := openBackend(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) { b.Close() })

	svc := service.NewTaskLogService(b.store, a.cfg.Storage.Location, a.cfg.Storage.Backend, b.opts...)
	m, err := cfotel.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	svc.SetMetrics(m)

	a.queue = b.Queue(a.cfg)
	if q := a.queue; q != nil || hub != nil {
		breaker := resilience.NewBreaker(a.cfg.Breaker.MaxFailures, a.cfg.Breaker.Timeout)
		svc.SetEvents(service.NewEntryPublisher(q, hub, breaker))
	}

	if err := svc.LoadOrEmpty(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}
