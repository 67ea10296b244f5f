package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Strob0t/tbd/internal/service"
)

func newMenuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive menu",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := a.openService(ctx, nil)
			if err != nil {
				return err
			}
			m := &menu{app: a, svc: svc, p: newPrompter(a.in, a.out)}
			return m.run(ctx)
		}),
	}
}

// menu is the interactive session. Save and load are explicit menu entries;
// nothing is written unless the user picks "Save log".
type menu struct {
	app *app
	svc *service.TaskLogService
	p   *prompter
}

type menuEntry struct {
	label string
	fn    func(context.Context) error
}

func (m *menu) entries() []menuEntry {
	return []menuEntry{
		{"New active task", m.newActive},
		{"New pooled task", m.newPooled},
		{"Print active tasks", m.printActives},
		{"Print pooled tasks", m.printPooled},
		{"Print log", m.printLog},
		{"Save log", m.save},
		{"Load log", m.load},
		{"Pick tasks", m.pick},
		{"Mark done", m.markDone},
	}
}

func (m *menu) run(ctx context.Context) error {
	entries := m.entries()
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.label
	}

	for {
		n, err := m.p.choice("tbd", labels, "Exit")
		if errors.Is(err, errInputClosed) || n == 0 {
			return nil
		}
		if err != nil {
			return err
		}
		if err := entries[n-1].fn(ctx); err != nil {
			if errors.Is(err, errInputClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Domain errors are reported and the menu continues.
			fmt.Fprintln(m.app.out, "Error:", err)
		}
	}
}

func (m *menu) newActive(ctx context.Context) error {
	title, err := m.p.line("Title: ")
	if err != nil {
		return err
	}
	factor, err := m.p.readFloat("Factor: ")
	if err != nil {
		return err
	}
	dueIn, err := m.p.readInt("Due in: ")
	if err != nil {
		return err
	}
	_, err = m.svc.Schedule(ctx, title, "-", factor, dueIn)
	return err
}

func (m *menu) newPooled(ctx context.Context) error {
	title, err := m.p.line("Title: ")
	if err != nil {
		return err
	}
	factor, err := m.p.readFloat("Factor: ")
	if err != nil {
		return err
	}
	probability, err := m.p.readFloat("Probability: ")
	if err != nil {
		return err
	}
	coolDown, err := m.p.readInt("Cool down time: ")
	if err != nil {
		return err
	}
	dueDays, err := m.p.readInt("Due days: ")
	if err != nil {
		return err
	}
	_, err = m.svc.Pool(ctx, title, "-", factor, probability, coolDown, dueDays)
	return err
}

func (m *menu) printActives(ctx context.Context) error {
	m.app.printer().actives(m.svc.Actives(ctx))
	return nil
}

func (m *menu) printPooled(ctx context.Context) error {
	m.app.printer().pooled(m.svc.Pooled(ctx))
	return nil
}

func (m *menu) printLog(ctx context.Context) error {
	m.app.printer().entries(m.svc.Entries(ctx))
	return nil
}

func (m *menu) save(ctx context.Context) error {
	return m.svc.Save(ctx)
}

func (m *menu) load(ctx context.Context) error {
	return m.svc.Load(ctx)
}

func (m *menu) pick(ctx context.Context) error {
	if !confirm(m.p, "Are you sure?") {
		return nil
	}
	promoted, err := m.svc.Activate(ctx, service.NewRand(service.RandomSeed()))
	if err != nil {
		return err
	}
	p := m.app.printer()
	for i := range promoted {
		fmt.Fprintln(m.app.out, " - "+p.activeLine(&promoted[i]))
	}
	return nil
}

func (m *menu) markDone(ctx context.Context) error {
	actives := m.svc.Actives(ctx)
	p := m.app.printer()
	for i := range actives {
		fmt.Fprintf(m.app.out, "%d: %s\n", i+1, p.activeLine(&actives[i]))
	}
	choice, err := m.p.readInt("> ")
	if err != nil {
		return err
	}
	if choice < 1 || choice > len(actives) {
		return nil
	}
	done, err := m.svc.MarkDone(ctx, actives[choice-1].Title)
	if err != nil {
		return err
	}
	if done {
		fmt.Fprintln(m.app.out, "Done")
	} else {
		fmt.Fprintln(m.app.out, "Error")
	}
	return nil
}
