package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverAddr    string
	adminUser     string
	adminPassword string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bridgectl",
	Short: "Administer a running calendar bridge",
	Long: `bridgectl talks to the administrative API of a running calendar
bridge daemon.

Quick start:
  bridgectl stats                          # Per-node session pool counts
  bridgectl clear                          # Drain every node's idle sessions
  bridgectl clear --node node-200          # Drain one node
  bridgectl lookup --username jdoe         # Directory lookup
  bridgectl hash-password                  # Produce an admin credential hash`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "http://localhost:8080", "Base URL of the bridge admin API")
	rootCmd.PersistentFlags().StringVar(&adminUser, "user", "", "Admin username")
	rootCmd.PersistentFlags().StringVar(&adminPassword, "password", "", "Admin password (prefer CALBRIDGE_ADMIN_PASSWORD)")
}

// password resolves the admin password from the flag or environment.
func password() string {
	if adminPassword != "" {
		return adminPassword
	}
	return os.Getenv("CALBRIDGE_ADMIN_PASSWORD")
}
