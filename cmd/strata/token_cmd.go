package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/strata/internal/settings"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Show or rotate the organization's registration link",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current registration link, generating one if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context(), root, stderrSink(cmd))
			if err != nil {
				return err
			}
			defer rt.Close()
			if !rt.caps.CanManageUsers {
				return settings.ErrForbidden
			}

			panel := settings.NewRegistrationPanel(rt.deps(settings.NeverConfirm))
			token, err := panel.Token(cmd.Context())
			if err != nil {
				return err
			}
			if token == "" {
				if token, err = panel.Generate(cmd.Context()); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), panel.URL(token))
			return nil
		},
	})

	var yes bool
	rotate := &cobra.Command{
		Use:   "rotate",
		Short: "Replace the registration link; old links stop working",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context(), root, stderrSink(cmd))
			if err != nil {
				return err
			}
			defer rt.Close()
			if !rt.caps.CanManageUsers {
				return settings.ErrForbidden
			}

			confirm := settings.AlwaysConfirm
			if !yes {
				confirm = promptConfirmer(cmd)
			}
			panel := settings.NewRegistrationPanel(rt.deps(confirm))
			token, err := panel.Rotate(cmd.Context())
			if errors.Is(err, settings.ErrNotConfirmed) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), panel.URL(token))
			return nil
		},
	}
	rotate.Flags().BoolVarP(&yes, "yes", "y", false, "rotate without asking")
	cmd.AddCommand(rotate)
	return cmd
}

// promptConfirmer asks on the command's streams and accepts y or yes.
func promptConfirmer(cmd *cobra.Command) settings.Confirmer {
	return settings.ConfirmFunc(func(_ context.Context, prompt string) bool {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	})
}
