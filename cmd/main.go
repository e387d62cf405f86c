package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brainhub/brain-ingest/cmd/service"
)

func main() {
	root := &cobra.Command{
		Use:   "brain-ingest",
		Short: "brain-ingest",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("empty command")
		},
	}

	root.AddCommand(service.NewCommand(), service.NewProcessCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
