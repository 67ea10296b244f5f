package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Strob0t/tbd/internal/service"
)

func newActiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "active",
		Short: "Manage active tasks",
	}

	var (
		title, description string
		factor             float64
		dueIn              int
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an active task",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := a.openService(ctx, nil)
			if err != nil {
				return err
			}
			t, err := svc.Schedule(ctx, title, description, factor, dueIn)
			if err != nil {
				return err
			}
			if err := svc.Save(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Added active task: "+a.printer().activeLine(&t))
			return nil
		}),
	}
	add.Flags().StringVar(&title, "title", "", "task title (required)")
	add.Flags().StringVar(&description, "description", "-", "task description")
	add.Flags().Float64Var(&factor, "factor", 1, "weighting factor")
	add.Flags().IntVar(&dueIn, "due-in", 0, "days until the task is due (required)")
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("due-in")

	list := &cobra.Command{
		Use:   "list",
		Short: "List active tasks",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			svc, err := a.openService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			a.printer().actives(svc.Actives(cmd.Context()))
			return nil
		}),
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newPoolCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Manage pooled tasks",
	}

	var (
		title, description      string
		factor, probability     float64
		coolDownDays, dueInDays int
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a pooled task",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := a.openService(ctx, nil)
			if err != nil {
				return err
			}
			t, err := svc.Pool(ctx, title, description, factor, probability, coolDownDays, dueInDays)
			if err != nil {
				return err
			}
			if err := svc.Save(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Added pooled task: "+a.printer().pooledLine(&t))
			return nil
		}),
	}
	add.Flags().StringVar(&title, "title", "", "task title (required)")
	add.Flags().StringVar(&description, "description", "-", "task description")
	add.Flags().Float64Var(&factor, "factor", 1, "weighting factor")
	add.Flags().Float64Var(&probability, "probability", 0, "chance of being picked per activation, 0 to 1 (required)")
	add.Flags().IntVar(&coolDownDays, "cool-down", 0, "days between activation attempts")
	add.Flags().IntVar(&dueInDays, "due-days", 0, "days until the task is due once picked (required)")
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("probability")
	_ = add.MarkFlagRequired("due-days")

	list := &cobra.Command{
		Use:   "list",
		Short: "List pooled tasks",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			svc, err := a.openService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			a.printer().pooled(svc.Pooled(cmd.Context()))
			return nil
		}),
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newLogCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Print the action log",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			svc, err := a.openService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			a.printer().entries(svc.Entries(cmd.Context()))
			return nil
		}),
	}
}

func newDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done TITLE",
		Short: "Mark an active task as done",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.openService(ctx, nil)
			if err != nil {
				return err
			}
			done, err := svc.MarkDone(ctx, args[0])
			if err != nil {
				return err
			}
			if !done {
				return fmt.Errorf("no active task %q", args[0])
			}
			if err := svc.Save(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Done")
			return nil
		}),
	}
}

var errNotConfirmed = errors.New("activation not confirmed; pass --yes to run non-interactively")

func newActivateCmd(a *app) *cobra.Command {
	var (
		seed uint64
		yes  bool
	)
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Pick pooled tasks at random and make them active",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !yes {
				if !a.isTerminal() {
					return errNotConfirmed
				}
				if !confirm(newPrompter(a.in, a.out), "Are you sure?") {
					return nil
				}
			}

			svc, err := a.openService(ctx, nil)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = service.RandomSeed()
			}
			promoted, err := svc.Activate(ctx, service.NewRand(seed))
			if err != nil {
				return err
			}
			if err := svc.Save(ctx); err != nil {
				return err
			}

			p := a.printer()
			fmt.Fprintf(a.out, "Picked %d tasks\n", len(promoted))
			for i := range promoted {
				fmt.Fprintln(a.out, " - "+p.activeLine(&promoted[i]))
			}
			return nil
		}),
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for a reproducible draw")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
