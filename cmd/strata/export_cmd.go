package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/strata/internal/export"
	"github.com/kingrea/strata/internal/toast"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	names := make([]string, 0, len(export.Entities)+1)
	for _, e := range export.Entities {
		names = append(names, string(e))
	}
	names = append(names, "all")

	cmd := &cobra.Command{
		Use:       "export [" + strings.Join(names, "|") + "]",
		Short:     "Write CSV exports without opening the console",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			rt, err := openRuntime(cmd.Context(), root, stderrSink(cmd))
			if err != nil {
				return err
			}
			defer rt.Close()

			if args[0] == "all" {
				var failed int
				for _, res := range rt.exporter.ExportAll(cmd.Context()) {
					if res.Err != nil {
						failed++
						continue
					}
					fmt.Fprintln(out, res.Path)
				}
				if failed > 0 {
					return fmt.Errorf("export: %d of %d exports failed", failed, len(export.Entities))
				}
				return nil
			}

			entity, err := export.ParseEntity(args[0])
			if err != nil {
				return err
			}
			path, err := rt.exporter.Export(cmd.Context(), entity)
			if err != nil {
				if errors.Is(err, export.ErrRunning) {
					return fmt.Errorf("export: %s export already running", entity)
				}
				return err
			}
			fmt.Fprintln(out, path)
			return nil
		},
	}
	return cmd
}

// stderrSink prints toasts to the command's error stream.
func stderrSink(cmd *cobra.Command) toast.Sink {
	return toast.SinkFunc(func(t toast.Toast) {
		fmt.Fprintln(cmd.ErrOrStderr(), t.String())
	})
}
