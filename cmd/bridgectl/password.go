package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/calendar-bridge/internal/application"
)

// hashPasswordCmd produces the argon2id hash the daemon expects in
// CALBRIDGE_ADMIN_PASSWORD_HASH.
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash an admin password for the daemon configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(os.Stderr, "Password: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		plaintext := strings.TrimRight(line, "\r\n")
		if plaintext == "" {
			return fmt.Errorf("password must not be empty")
		}

		hash, err := application.CreatePasswordHash(plaintext, application.DefaultArgon2idParams)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
