package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	lookupUsername string
	lookupKind     string
	lookupQuery    string
	lookupOwner    string
)

type accountPayload struct {
	UniqueID    string `json:"unique_id"`
	Username    string `json:"username"`
	Kind        string `json:"kind"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Node        string `json:"node"`
	Login       string `json:"login"`
	Eligible    bool   `json:"eligible"`
}

// lookupCmd queries the account directory.
var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up accounts in the bridge directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		switch {
		case lookupUsername != "":
			query.Set("username", lookupUsername)
			if lookupKind != "" {
				query.Set("kind", lookupKind)
			}
		case lookupOwner != "":
			query.Set("owner", lookupOwner)
		case lookupQuery != "":
			query.Set("q", lookupQuery)
		default:
			return fmt.Errorf("one of --username, --owner or --query is required")
		}

		path := "/accounts?" + query.Encode()
		if lookupUsername != "" {
			var account accountPayload
			if err := newClient().do(http.MethodGet, path, &account); err != nil {
				return err
			}
			printAccount(account)
			return nil
		}

		var accounts []accountPayload
		if err := newClient().do(http.MethodGet, path, &accounts); err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("no accounts matched")
			return nil
		}
		for _, account := range accounts {
			printAccount(account)
			fmt.Println()
		}
		return nil
	},
}

// guidCmd resolves an account's remote GUID.
var guidCmd = &cobra.Command{
	Use:   "guid <unique-id>",
	Short: "Resolve the remote GUID for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload struct {
			GUID string `json:"guid"`
		}
		path := "/accounts/" + url.PathEscape(args[0]) + "/guid"
		if err := newClient().do(http.MethodGet, path, &payload); err != nil {
			return err
		}
		fmt.Println(payload.GUID)
		return nil
	},
}

func printAccount(account accountPayload) {
	fmt.Printf("unique_id: %s\n", account.UniqueID)
	fmt.Printf("username:  %s (%s)\n", account.Username, account.Kind)
	fmt.Printf("display:   %s\n", account.DisplayName)
	if account.Email != "" {
		fmt.Printf("email:     %s\n", account.Email)
	}
	fmt.Printf("node:      %s\n", account.Node)
	fmt.Printf("login:     %s\n", account.Login)
	fmt.Printf("eligible:  %t\n", account.Eligible)
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(guidCmd)
	lookupCmd.Flags().StringVar(&lookupUsername, "username", "", "Exact username to look up")
	lookupCmd.Flags().StringVar(&lookupKind, "kind", "", "Account kind: user or resource")
	lookupCmd.Flags().StringVar(&lookupQuery, "query", "", "Substring to search usernames and display names")
	lookupCmd.Flags().StringVar(&lookupOwner, "owner", "", "List resources delegated to this owner username")
}
