package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hairvision-ai/hairvision/internal/export"
	"github.com/hairvision-ai/hairvision/internal/store"
)

func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored sessions to Parquet or JSONL",
		Long: `Reads every session from the SQLite store and writes one row per session.
The format follows the output extension (.parquet or .jsonl).`,
		Example: `  hairvision export --output sessions.parquet
  hairvision export --db /var/lib/hairvision/hairvision.db --output sessions.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.NewSQLite(a.cfg.Store.Path, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			sessions, err := db.List(cmd.Context())
			if err != nil {
				return err
			}
			n, err := export.WriteFile(output, sessions)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d sessions to %s\n", n, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "sessions.parquet", "Output file (.parquet or .jsonl)")
	cmd.Flags().String("db", "hairvision.db", "SQLite database path")
	_ = a.v.BindPFlag("store.path", cmd.Flags().Lookup("db"))

	return cmd
}
