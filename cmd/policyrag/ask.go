package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func askCMD() *cobra.Command {
	var showSources bool
	var ask = &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(false)
			if err != nil {
				return err
			}
			ans, err := a.Query.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ans.Text)
			if !showSources {
				return nil
			}
			fmt.Fprintln(out)
			for i, r := range ans.Sources {
				fmt.Fprintf(out, "[%d] %s (%s) score=%.3f\n", i+1, filepath.Base(r.Chunk.Path), r.Chunk.ChunkID, r.Score)
			}
			return nil
		},
	}
	ask.Flags().BoolVarP(&showSources, "sources", "s", true, "print the retrieved sources")
	return ask
}
