package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"clubchat/internal/chat"
)

var (
	tailClub    string
	tailChannel string
	tailUser    string
)

func init() {
	tailCmd.Flags().StringVar(&tailClub, "club", "", "club id (channel conversations)")
	tailCmd.Flags().StringVar(&tailChannel, "channel", "", "channel id (channel conversations)")
	tailCmd.Flags().StringVar(&tailUser, "user", "", "peer user id (direct conversations)")
	rootCmd.AddCommand(tailCmd)
}

// selection builds the select command from the shared --club/--channel/--user
// flags.
func selection(club, channel, user string) (*chat.SelectRequest, error) {
	switch {
	case user != "":
		return &chat.SelectRequest{Kind: chat.KindDirect, UserID: user}, nil
	case club != "" && channel != "":
		return &chat.SelectRequest{Kind: chat.KindChannel, ClubID: club, ChannelID: channel}, nil
	}
	return nil, fmt.Errorf("pass either --club and --channel, or --user")
}

// dialWs opens the chat socket and issues the initial select.
func dialWs(cfg *Config, sel *chat.SelectRequest) (*websocket.Conn, error) {
	u, err := url.Parse(cfg.Server.BaseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = "token=" + url.QueryEscape(cfg.Auth.Token)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	if err := conn.WriteJSON(chat.Command{Type: "select", Select: sel}); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// serverFrame is the union of the frames the server pushes.
type serverFrame struct {
	chat.Snapshot
	Error string `json:"error,omitempty"`
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow a conversation, printing messages as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loggedIn()
		if err != nil {
			return err
		}
		sel, err := selection(tailClub, tailChannel, tailUser)
		if err != nil {
			return err
		}

		conn, err := dialWs(cfg, sel)
		if err != nil {
			return err
		}
		defer conn.Close()

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		go func() {
			<-interrupt
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		}()

		var lastID string
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return nil
			}
			var frame serverFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				continue
			}
			switch frame.Type {
			case "error":
				fmt.Fprintf(os.Stderr, "error: %s\n", frame.Error)
			case "snapshot":
				lastID = renderSnapshot(cfg, frame.Snapshot, lastID)
			}
		}
	},
}

// renderSnapshot prints everything after sinceID and returns the new high
// water mark. Snapshots carry whole state, so the tail only needs to print
// the suffix it has not shown yet.
func renderSnapshot(cfg *Config, snap chat.Snapshot, sinceID string) string {
	switch snap.State {
	case chat.StateFailed:
		fmt.Fprintln(os.Stderr, "history load failed")
		return sinceID
	case chat.StateReconnecting:
		fmt.Fprintln(os.Stderr, "(reconnecting...)")
	}

	pending := snap.Messages
	if sinceID != "" {
		start := len(pending)
		for i, m := range pending {
			if m.ID > sinceID {
				start = i
				break
			}
		}
		pending = pending[start:]
	}
	if len(pending) == 0 {
		return sinceID
	}

	for _, group := range chat.GroupMessages(pending) {
		fmt.Printf("%s  %s\n", group.Messages[0].SentAt.Local().Format("15:04"), senderName(cfg, group.SenderID))
		for _, m := range group.Messages {
			fmt.Printf("    %s\n", renderBody(m.Text))
		}
	}
	return snap.Messages[len(snap.Messages)-1].ID
}

func renderBody(text string) string {
	body := chat.ParseBody(text)
	switch body.Kind {
	case chat.BodyImage:
		return fmt.Sprintf("[image: %s] %s", body.Filename, body.URL)
	case chat.BodyFile:
		return fmt.Sprintf("[file: %s] %s", body.Filename, body.URL)
	}
	return body.Text
}

var profileNames = map[string]string{}

// senderName resolves a user id to a display name via the profile API,
// cached per process.
func senderName(cfg *Config, userID string) string {
	if name, ok := profileNames[userID]; ok {
		return name
	}
	var profile struct {
		Name string `json:"name"`
	}
	name := userID
	if err := apiGet(cfg, "/api/users/"+userID+"/profile", &profile); err == nil && strings.TrimSpace(profile.Name) != "" {
		name = profile.Name
	}
	profileNames[userID] = name
	return name
}
