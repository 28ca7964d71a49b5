package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(clubsCmd)
	clubsCmd.AddCommand(channelsCmd)
}

func apiGet(cfg *Config, path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, cfg.Server.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.Auth.Token)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var clubsCmd = &cobra.Command{
	Use:   "clubs",
	Short: "List clubs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loggedIn()
		if err != nil {
			return err
		}

		var clubs []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := apiGet(cfg, "/api/clubs", &clubs); err != nil {
			return err
		}
		if len(clubs) == 0 {
			fmt.Println("No clubs.")
			return nil
		}
		for _, c := range clubs {
			fmt.Printf("%s  %s", c.ID, c.Name)
			if c.Description != "" {
				fmt.Printf("  (%s)", c.Description)
			}
			fmt.Println()
		}
		return nil
	},
}

var channelsCmd = &cobra.Command{
	Use:   "channels <club-id>",
	Short: "List a club's channels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loggedIn()
		if err != nil {
			return err
		}

		var channels []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := apiGet(cfg, "/api/clubs/"+args[0]+"/channels", &channels); err != nil {
			return err
		}
		for _, ch := range channels {
			fmt.Printf("%s  #%s\n", ch.ID, ch.Name)
		}
		return nil
	},
}
