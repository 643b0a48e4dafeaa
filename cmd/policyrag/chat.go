package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"policyrag/internal/tui"
)

func chatCMD() *cobra.Command {
	var timeout time.Duration
	var chat = &cobra.Command{
		Use:   "chat",
		Short: "Interactive terminal client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Console output would corrupt the terminal UI; logs go to the file writer only.
			a, err := bootstrap(false)
			if err != nil {
				return err
			}
			if err := a.Manager.Ensure(cmd.Context()); err != nil {
				return err
			}
			st := a.Manager.Status()
			subtitle := fmt.Sprintf("%d chunks from %s  |  %s + %s", st.Chunks, a.Config.Documents.Root, a.Embedder.Name(), a.Model.Name())
			_, err = tea.NewProgram(tui.New(a.Query, subtitle, timeout), tea.WithAltScreen()).Run()
			return err
		},
	}
	chat.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "per-question timeout")
	return chat
}
