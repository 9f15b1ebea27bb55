// Package main connects to the live post feed and prints every event.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

type postEvent struct {
	Type           string    `json:"type"`
	RefID          string    `json:"refId"`
	AuthorRefID    string    `json:"authorRefId"`
	ActorRefID     string    `json:"actorRefId"`
	CategoryRefIDs []string  `json:"categoryRefIds"`
	LikeCount      int       `json:"likeCount"`
	DislikeCount   int       `json:"dislikeCount"`
	At             time.Time `json:"at"`
}

func main() {
	host := flag.String("host", "localhost:3001", "API server host")
	email := flag.String("email", "", "Sign in as this user to also receive reactions to their posts")
	password := flag.String("password", "", "Password for -email")
	category := flag.String("category", "", "Only print events for posts in this category refId")
	raw := flag.Bool("raw", false, "Print frames exactly as received")
	flag.Parse()

	var token string
	if *email != "" {
		var err error
		if token, err = signIn(*host, *email, *password); err != nil {
			log.Fatalf("Sign in failed: %v", err)
		}
		log.Printf("Signed in as %s", *email)
	}

	u := url.URL{Scheme: "ws", Host: *host, Path: "/api/ws/posts"}
	if token != "" {
		u.RawQuery = url.Values{"token": {token}}.Encode()
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial %s failed: %v", u.Redacted(), err)
	}
	_ = resp.Body.Close()
	defer func() { _ = conn.Close() }()
	log.Printf("Connected to %s", u.Host)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				log.Printf("Connection closed: %v", err)
				return
			}
			printFrame(frame, *category, *raw)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
	case <-interrupt:
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func printFrame(frame []byte, category string, raw bool) {
	var ev postEvent
	if err := json.Unmarshal(frame, &ev); err != nil || ev.Type == "" {
		fmt.Println(string(frame))
		return
	}
	if category != "" && !slices.Contains(ev.CategoryRefIDs, category) {
		return
	}
	if raw {
		fmt.Println(string(frame))
		return
	}
	author := ev.AuthorRefID
	if author == "" {
		author = "anonymous"
	}
	fmt.Printf("%s %-14s post=%s author=%s likes=%d dislikes=%d\n",
		ev.At.Local().Format(time.TimeOnly), ev.Type, ev.RefID, author, ev.LikeCount, ev.DislikeCount)
}

func signIn(host, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(fmt.Sprintf("http://%s/api/auth/signin", host), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("signin failed with status %d", resp.StatusCode)
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}
