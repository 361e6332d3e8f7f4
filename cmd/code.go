package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hairvision-ai/hairvision/internal/sessioncode"
)

func newCodeCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "code",
		Short: "Generate session codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			for range count {
				code, err := sessioncode.New()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), code)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of codes")
	return cmd
}
