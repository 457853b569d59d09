package main

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/spf13/cobra"
)

var clearNode string

// statsCmd reports per-node session pool counts.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-node session pool statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload struct {
			Nodes map[string]struct {
				Borrowed int `json:"borrowed"`
				Idle     int `json:"idle"`
			} `json:"nodes"`
		}
		if err := newClient().do(http.MethodGet, "/pool/stats", &payload); err != nil {
			return err
		}

		if len(payload.Nodes) == 0 {
			fmt.Println("no sessions pooled yet")
			return nil
		}

		ids := make([]string, 0, len(payload.Nodes))
		for id := range payload.Nodes {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		fmt.Printf("%-20s %10s %10s\n", "NODE", "BORROWED", "IDLE")
		for _, id := range ids {
			stats := payload.Nodes[id]
			fmt.Printf("%-20s %10d %10d\n", id, stats.Borrowed, stats.Idle)
		}
		return nil
	},
}

// clearCmd drains pooled sessions.
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drain pooled sessions, optionally scoped to one node",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/pool/sessions"
		if clearNode != "" {
			path = "/pool/nodes/" + url.PathEscape(clearNode) + "/sessions"
		}
		if err := newClient().do(http.MethodDelete, path, nil); err != nil {
			return err
		}
		if clearNode != "" {
			fmt.Printf("cleared sessions on node %s\n", clearNode)
		} else {
			fmt.Println("cleared sessions on all nodes")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().StringVar(&clearNode, "node", "", "Limit the drain to one node ID")
}
