package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/darekasanga/linerelay/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:   "linerelay",
		Short: "Webhook relay: chat images in, versioned store commits and replies out",
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and relay worker",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
