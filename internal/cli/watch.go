package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cfnats "github.com/Strob0t/tbd/internal/adapter/nats"
	"github.com/Strob0t/tbd/internal/domain/tasklog"
	"github.com/Strob0t/tbd/internal/port/messagequeue"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print log entries published on the event bus as they arrive",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			q, err := cfnats.Connect(ctx, a.cfg.NATS.URL)
			if err != nil {
				return fmt.Errorf("nats: %w", err)
			}
			defer func() { _ = q.Drain() }()

			cancel, err := q.Subscribe(ctx, messagequeue.SubjectAll, a.printEvent)
			if err != nil {
				return err
			}
			defer cancel()

			<-ctx.Done()
			return nil
		}),
	}
}

// printEvent renders a published entry the same way "tbd log" does.
func (a *app) printEvent(_ context.Context, _ string, data []byte) error {
	var p messagequeue.EntryPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	e, err := tasklog.DecodeEntry(p.ID, p.Timestamp, tasklog.Kind(p.Kind), p.Action)
	if err != nil {
		return err
	}
	a.printer().entry(&e)
	return nil
}
