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

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// chatClient is a thin client for the HTTP API, used by the interactive
// chat command.
type chatClient struct {
	baseURL string
	token   string
	http    *http.Client
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *chatClient) call(method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, strings.TrimSuffix(c.baseURL, "/")+"/api/v1"+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("bad response (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if envelope.Code != 0 {
		return fmt.Errorf("%s (code %d)", envelope.Message, envelope.Code)
	}
	if out != nil && len(envelope.Data) > 0 {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

func (c *chatClient) login(email, password string) error {
	var result struct {
		Token string `json:"token"`
	}
	payload := map[string]string{"email": email, "password": password}
	if err := c.call(http.MethodPost, "/auth/login", payload, &result); err != nil {
		return err
	}
	c.token = result.Token
	return nil
}

func (c *chatClient) createThread(title string) (string, error) {
	var thread struct {
		ID string `json:"id"`
	}
	if err := c.call(http.MethodPost, "/threads", map[string]string{"title": title}, &thread); err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (c *chatClient) send(threadID, content string) (string, error) {
	var reply struct {
		Content string `json:"content"`
	}
	path := "/threads/" + threadID + "/messages"
	if err := c.call(http.MethodPost, path, map[string]string{"content": content}, &reply); err != nil {
		return "", err
	}
	return reply.Content, nil
}

func newChatCmd() *cobra.Command {
	var (
		server   string
		email    string
		password string
		threadID string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "interactive chat against a running parley server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			client := &chatClient{
				baseURL: server,
				http:    &http.Client{Timeout: 120 * time.Second},
			}
			if err := client.login(email, password); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if threadID == "" {
				id, err := client.createThread("cli session " + time.Now().Format("2006-01-02 15:04"))
				if err != nil {
					return fmt.Errorf("create thread: %w", err)
				}
				threadID = id
			}

			userLabel := color.New(color.FgGreen, color.Bold).SprintFunc()
			replyLabel := color.New(color.FgCyan, color.Bold).SprintFunc()
			errLabel := color.New(color.FgRed).SprintFunc()
			fmt.Printf("connected to %s, thread %s\n", server, threadID)
			fmt.Println("type a message and press enter, 'exit' to quit")
			fmt.Println()

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)
			for {
				fmt.Print(userLabel("you: "))
				if !scanner.Scan() {
					break
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "" {
					continue
				}
				if strings.EqualFold(input, "exit") {
					break
				}
				reply, err := client.send(threadID, input)
				if err != nil {
					fmt.Println(errLabel("error: " + err.Error()))
					continue
				}
				fmt.Println(replyLabel("assistant: ") + reply)
				fmt.Println()
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://127.0.0.1:8080", "server base URL")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&threadID, "thread", "", "resume an existing thread")
	return cmd
}
