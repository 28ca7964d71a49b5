package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL   = "http://localhost:8080"
	WSURL     = "ws://localhost:8080/ws"
	PairCount = 50 // ⚠️ Start small (50 pairs = 100 users). Database might choke on 1000 immediately.
	MsgCount  = 20 // Messages per user
)

type AuthResponse struct {
	Token    string `json:"access_token"`
	ID       string `json:"id"`
	Username string `json:"username"`
}

func main() {
	log.Printf("🔥 STARTING STRESS TEST: %d Users, %d Messages each...", PairCount*2, MsgCount)
	var wg sync.WaitGroup

	// We will create pairs: User 0 talks to User 1, User 2 talks to User 3...
	for i := 0; i < PairCount; i++ {
		wg.Add(1)
		go func(pairID int) {
			defer wg.Done()
			runPair(pairID)
		}(i)
	}

	wg.Wait()
	log.Println("✅ LOAD TEST COMPLETE")
}

func runPair(pairID int) {
	userA := fmt.Sprintf("u_%d_a", pairID)
	userB := fmt.Sprintf("u_%d_b", pairID)
	pass := "password123"

	authA := authenticate(userA, pass)
	authB := authenticate(userB, pass)
	if authA == nil || authB == nil {
		return // Failed auth
	}

	// Both sides select the same direct conversation, then spam it.
	var wsWg sync.WaitGroup
	wsWg.Add(2)
	go spamChat(&wsWg, authA, authB.ID)
	go spamChat(&wsWg, authB, authA.ID)
	wsWg.Wait()
}

// authenticate registers (ignores error if exists) and logs in
func authenticate(username, password string) *AuthResponse {
	postJSON("/register", map[string]string{"username": username, "password": password})

	resp, err := postJSON("/login", map[string]string{"username": username, "password": password})
	if err != nil {
		log.Printf("❌ Login Failed [%s]: %v", username, err)
		return nil
	}
	defer resp.Body.Close()

	var data AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil || data.Token == "" {
		log.Printf("❌ Login Failed [%s]: bad response", username)
		return nil
	}
	return &data
}

func spamChat(wg *sync.WaitGroup, auth *AuthResponse, peerID string) {
	defer wg.Done()

	conn, _, err := websocket.DefaultDialer.Dial(WSURL+"?token="+url.QueryEscape(auth.Token), nil)
	if err != nil {
		log.Printf("❌ WS Connect Fail [%s]: %v", auth.Username, err)
		return
	}
	defer conn.Close()

	// Drain server snapshots so the write side never stalls on a full
	// socket buffer.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sel := map[string]any{
		"type":   "select",
		"select": map[string]string{"kind": "direct", "user_id": peerID},
	}
	if err := conn.WriteJSON(sel); err != nil {
		log.Printf("❌ Select Fail [%s]: %v", auth.Username, err)
		return
	}
	// Give the history fetch a moment before spamming.
	time.Sleep(200 * time.Millisecond)

	for i := 0; i < MsgCount; i++ {
		msg := map[string]string{
			"type": "send",
			"text": fmt.Sprintf("LoadTest Msg %d from %s", i, auth.Username),
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("❌ Send Fail [%s]: %v", auth.Username, err)
			break
		}
		// Small sleep to prevent instant localhost bottleneck (simulate real network)
		time.Sleep(10 * time.Millisecond)
	}
	log.Printf("✅ %s finished sending %d msgs", auth.Username, MsgCount)
}

func postJSON(endpoint string, data interface{}) (*http.Response, error) {
	jsonData, _ := json.Marshal(data)
	return http.Post(BaseURL+endpoint, "application/json", bytes.NewBuffer(jsonData))
}
