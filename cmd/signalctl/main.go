// Package main is the Signal Explorer control CLI. It drives the server's
// REST API; it never talks to the query backends directly.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	root := &cobra.Command{
		Use:   "signalctl",
		Short: "Signal Explorer control tool",
	}

	root.PersistentFlags().StringVar(&serverAddr, "addr", "http://localhost:8080", "Signal Explorer server address")
	root.PersistentFlags().StringVar(&authToken, "token", "", "bearer token, required when the server has auth enabled")
	root.PersistentFlags().DurationVar(&requestTimeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(registerServicesCommand())
	root.AddCommand(registerCatalogCommand())
	root.AddCommand(registerQueryCommand())
	root.AddCommand(registerVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func registerVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}
