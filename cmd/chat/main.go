// Package main is a terminal chat client against the career API server.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ryanDing26/career-gpt/engine/domain"
)

type chatRequest struct {
	Messages []domain.Message `json:"messages"`
}

type chatResponse struct {
	Answer      string `json:"answer"`
	Refreshed   bool   `json:"refreshed"`
	ContextDocs int    `json:"context_docs"`
	Error       string `json:"error"`
}

func main() {
	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	client := &http.Client{Timeout: 5 * time.Minute}

	fmt.Println("career assistant. Type a question, or 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	var history []domain.Message

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		history = append(history, domain.Message{Role: "user", Content: line})
		resp, err := send(client, apiURL, history)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			history = history[:len(history)-1]
			continue
		}

		history = append(history, domain.Message{Role: "assistant", Content: resp.Answer})
		if resp.Refreshed {
			fmt.Println("(knowledge base refreshed)")
		}
		fmt.Println(resp.Answer)
	}
}

func send(client *http.Client, apiURL string, history []domain.Message) (*chatResponse, error) {
	body, err := json.Marshal(chatRequest{Messages: history})
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(apiURL+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("bad response (%d): %s", resp.StatusCode, data)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("server: %s", out.Error)
	}
	return &out, nil
}
