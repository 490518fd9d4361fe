package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the database opens and migrates cleanly",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				fmt.Println("ok")
				return nil
			})
		},
	}
}
