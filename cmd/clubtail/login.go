package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	loginServer   string
	loginPassword string
)

func init() {
	loginCmd.Flags().StringVar(&loginServer, "server", "", "server base URL (e.g. http://localhost:8080)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and store the session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if loginServer != "" {
			cfg.Server.BaseURL = strings.TrimRight(loginServer, "/")
		}
		if cfg.Server.BaseURL == "" {
			return fmt.Errorf("no server configured; pass --server")
		}
		if loginPassword == "" {
			return fmt.Errorf("pass --password")
		}

		body, _ := json.Marshal(map[string]string{
			"username": args[0],
			"password": loginPassword,
		})
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Post(cfg.Server.BaseURL+"/login", "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("login request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("login failed: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		}

		var session struct {
			AccessToken string `json:"access_token"`
			ID          string `json:"id"`
			Username    string `json:"username"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
			return fmt.Errorf("decode login response: %w", err)
		}

		cfg.Auth.Token = session.AccessToken
		cfg.Auth.UserID = session.ID
		cfg.Auth.Username = session.Username
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s\n", session.Username)
		return nil
	},
}
