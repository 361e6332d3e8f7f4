package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hairvision-ai/hairvision/internal/client"
	"github.com/hairvision-ai/hairvision/internal/display"
	"github.com/hairvision-ai/hairvision/internal/models"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Read or move a display session on a running server",
	}

	get := &cobra.Command{
		Use:   "get CODE",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := client.NewClient(a.cfg.ServerURL).GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSession(cmd, s)
			return nil
		},
	}

	var version int64
	set := &cobra.Command{
		Use:   "set CODE SECTION",
		Short: "Move a session's display to a section",
		Long: fmt.Sprintf(`Moves the display to SECTION.

Valid sections: %s`, strings.Join(display.ValidSections(), ", ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, err := display.Parse(args[1])
			if err != nil {
				return err
			}
			s, err := client.NewClient(a.cfg.ServerURL).SetSection(cmd.Context(), args[0], section, version)
			if err != nil {
				return err
			}
			printSession(cmd, s)
			return nil
		},
	}
	set.Flags().Int64Var(&version, "version", 0, "Expected current version; the update fails with a conflict if the session moved since")

	cmd.AddCommand(get, set)
	return cmd
}

func printSession(cmd *cobra.Command, s *models.SessionSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Code:     %s\n", s.SessionCode)
	fmt.Fprintf(out, "Section:  %s\n", s.CurrentSection)
	fmt.Fprintf(out, "Version:  %d\n", s.Version)
	fmt.Fprintf(out, "Created:  %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
}
