package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/strata/internal/tui"
)

type rootOptions struct {
	dir string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "strata",
		Short:         "Settings console for the strategic planning API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsole(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "project directory holding .strata/ (default: current directory)")
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	return cmd
}

func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func runConsole(ctx context.Context, opts *rootOptions) error {
	rt, err := openRuntime(ctx, opts, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	app, err := tui.NewApp(tui.Session{
		API:      rt.client,
		Me:       rt.me,
		Caps:     rt.caps,
		Cache:    rt.cache,
		Journal:  rt.journal,
		Exporter: rt.exporter,
		Logger:   rt.logger,
	})
	if err != nil {
		return err
	}
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	app.Attach(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}
