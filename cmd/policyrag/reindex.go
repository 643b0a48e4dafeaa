package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func reindexCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the vector index from the document root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(true)
			if err != nil {
				return err
			}
			n, err := a.Manager.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d chunks into %s\n", n, a.Config.Index.Dir)
			return nil
		},
	}
}
