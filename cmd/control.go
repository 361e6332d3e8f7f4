package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hairvision-ai/hairvision/internal/client"
	"github.com/hairvision-ai/hairvision/internal/display"
	"github.com/hairvision-ai/hairvision/internal/remote"
	"github.com/hairvision-ai/hairvision/internal/sessioncode"
)

func newControlCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "control CODE",
		Short: "Drive a customer display from the terminal",
		Long: `Opens an interactive remote for the display showing CODE.

Arrow keys move between sections, 1-9 jump directly. Every move is sent to the
server in the background; the display follows within a moment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := sessioncode.Normalize(args[0])
			c := client.NewClient(a.cfg.ServerURL)

			s, err := c.GetSession(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("could not connect to session %s: %w", code, err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			ctrl := display.NewController(code, display.Section(s.CurrentSection), c)
			p := tea.NewProgram(remote.New(ctx, ctrl), tea.WithContext(ctx))
			ctrl.OnError(func(section display.Section, err error) {
				p.Send(remote.PatchFailedMsg{Section: section, Err: err})
			})

			go func() {
				err := c.Follow(ctx, code, func(_ string, f display.Frame) error {
					p.Send(remote.FrameMsg{Frame: f})
					return nil
				})
				p.Send(remote.FollowEndedMsg{Err: err})
			}()

			_, err = p.Run()
			ctrl.Wait()
			cancel()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, context.Canceled) {
				return err
			}
			slog.Debug("Remote closed", "session_code", code, "section", ctrl.Current())
			return nil
		},
	}
}
