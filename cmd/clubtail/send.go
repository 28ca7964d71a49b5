package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clubchat/internal/chat"
)

var (
	sendClub    string
	sendChannel string
	sendUser    string
	sendFile    string
)

func init() {
	sendCmd.Flags().StringVar(&sendClub, "club", "", "club id (channel conversations)")
	sendCmd.Flags().StringVar(&sendChannel, "channel", "", "channel id (channel conversations)")
	sendCmd.Flags().StringVar(&sendUser, "user", "", "peer user id (direct conversations)")
	sendCmd.Flags().StringVar(&sendFile, "file", "", "attach a file instead of sending text")
	rootCmd.AddCommand(sendCmd)
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Post a message or attachment to a conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loggedIn()
		if err != nil {
			return err
		}
		sel, err := selection(sendClub, sendChannel, sendUser)
		if err != nil {
			return err
		}

		var out chat.Command
		switch {
		case sendFile != "":
			data, err := os.ReadFile(sendFile)
			if err != nil {
				return err
			}
			if len(data) > chat.MaxAttachmentSize {
				return fmt.Errorf("%s exceeds the %d MiB attachment limit", sendFile, chat.MaxAttachmentSize>>20)
			}
			kind := chat.AttachmentFile
			if imageExtensions[strings.ToLower(filepath.Ext(sendFile))] {
				kind = chat.AttachmentImage
			}
			out = chat.Command{
				Type: "attach",
				Name: filepath.Base(sendFile),
				Kind: kind,
				Data: base64.StdEncoding.EncodeToString(data),
			}
		case len(args) > 0:
			out = chat.Command{Type: "send", Text: strings.Join(args, " ")}
		default:
			return fmt.Errorf("pass a message or --file")
		}

		conn, err := dialWs(cfg, sel)
		if err != nil {
			return err
		}
		defer conn.Close()

		// Wait for the conversation to come up before posting, then for
		// one more snapshot so a server-side rejection surfaces as an
		// error frame instead of a silent drop.
		deadline := time.Now().Add(15 * time.Second)
		sent := false
		for time.Now().Before(deadline) {
			conn.SetReadDeadline(deadline)
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("connection lost: %w", err)
			}
			var frame serverFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				continue
			}
			if frame.Type == "error" {
				return fmt.Errorf("server: %s", frame.Error)
			}
			if frame.State != chat.StateActive {
				continue
			}
			if !sent {
				if err := conn.WriteJSON(out); err != nil {
					return err
				}
				sent = true
				continue
			}
			fmt.Println("sent")
			return nil
		}
		return fmt.Errorf("timed out waiting for the conversation")
	},
}
