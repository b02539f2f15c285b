package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/strixlabs/vllmctl/internal/config"
)

// ChatOptions holds options for the chat command
type ChatOptions struct {
	*GlobalOptions

	// Endpoint overrides the inference server base URL
	Endpoint string

	// Model overrides the model name sent with each request
	Model string
}

// NewChatCommand creates the chat command.
//
// The chat command opens an interactive session against the launched
// inference server's OpenAI-compatible API. Endpoint and model default to
// the values in the generated env file, so a plain `vllmctl chat` talks to
// whatever the last launch started.
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for interactive chat
func NewChatCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &ChatOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively with the launched model",
		Long: `Open an interactive chat session with the inference server.

Type a message and press Enter. Slash commands:
  /h, /?      show help
  /clear      clear the conversation
  /set        set temperature, top-p, or max-tokens
  /show       show current session settings
  /quit       exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "",
		"inference server base URL (default: from the generated env file)")
	cmd.Flags().StringVar(&opts.Model, "model", "",
		"model name for requests (default: from the generated env file)")

	return cmd
}

// runChat executes the chat command logic
func runChat(opts *ChatOptions) error {
	settings, err := loadSettings(opts.GlobalOptions)
	if err != nil {
		return err
	}

	endpoint := opts.Endpoint
	model := opts.Model

	// Fall back to the record the last launch wrote.
	if endpoint == "" || model == "" {
		record, err := config.ReadEnvFile(settings.EnvFile)
		if err != nil {
			return err
		}
		if endpoint == "" {
			port := record[config.EnvPort]
			if port == "" {
				port = strconv.Itoa(config.DefaultPort)
			}
			endpoint = "http://localhost:" + port
		}
		if model == "" {
			model = record[config.EnvModel]
		}
	}
	if model == "" {
		model = config.DefaultModel
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	session := &chatSession{
		model:       model,
		endpoint:    endpoint,
		temperature: 0.7,
		topP:        0.9,
		maxTokens:   2048,
		output:      rl.Stdout(),
	}

	fmt.Printf("Chatting with %s at %s. /quit to exit, /h for help.\n\n", model, endpoint)

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			break // io.EOF or terminal error
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if session.handleCommand(input) {
				break
			}
			continue
		}

		session.messages = append(session.messages, chatMessage{Role: "user", Content: input})

		fmt.Fprint(session.output, "\n")
		reply, err := session.stream(context.Background())
		if err != nil {
			fmt.Fprintf(session.output, "Error: %v\n", err)
			session.messages = session.messages[:len(session.messages)-1]
			continue
		}
		fmt.Fprint(session.output, "\n\n")

		session.messages = append(session.messages, chatMessage{Role: "assistant", Content: reply})
	}

	return nil
}

// chatMessage is one turn of the conversation in OpenAI wire format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatSession holds the state of an interactive session
type chatSession struct {
	model       string
	endpoint    string
	messages    []chatMessage
	temperature float64
	topP        float64
	maxTokens   int
	output      io.Writer
}

// handleCommand processes slash commands; returns true to exit the session
func (s *chatSession) handleCommand(cmd string) bool {
	fields := strings.Fields(cmd)
	switch fields[0] {
	case "/quit":
		fmt.Fprintln(s.output, "Goodbye!")
		return true
	case "/h", "/?":
		fmt.Fprintln(s.output, "  /h, /?                 show this help")
		fmt.Fprintln(s.output, "  /clear                 clear conversation history")
		fmt.Fprintln(s.output, "  /set <param> <value>   set temperature, top-p, or max-tokens")
		fmt.Fprintln(s.output, "  /show                  show session settings")
		fmt.Fprintln(s.output, "  /quit                  exit")
	case "/clear":
		s.messages = nil
		fmt.Fprintln(s.output, "Conversation cleared.")
	case "/show":
		fmt.Fprintf(s.output, "model=%s endpoint=%s temperature=%.2f top-p=%.2f max-tokens=%d messages=%d\n",
			s.model, s.endpoint, s.temperature, s.topP, s.maxTokens, len(s.messages))
	case "/set":
		s.handleSet(fields[1:])
	default:
		fmt.Fprintf(s.output, "Unknown command: %s (try /h)\n", fields[0])
	}
	return false
}

// handleSet updates a sampling parameter
func (s *chatSession) handleSet(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(s.output, "Usage: /set <temperature|top-p|max-tokens> <value>")
		return
	}
	switch args[0] {
	case "temperature", "temp":
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil || v < 0 || v > 2 {
			fmt.Fprintln(s.output, "Invalid temperature, must be between 0 and 2.")
			return
		}
		s.temperature = v
	case "top-p", "top_p":
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil || v < 0 || v > 1 {
			fmt.Fprintln(s.output, "Invalid top-p, must be between 0 and 1.")
			return
		}
		s.topP = v
	case "max-tokens", "max_tokens":
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 1 {
			fmt.Fprintln(s.output, "Invalid max-tokens, must be a positive integer.")
			return
		}
		s.maxTokens = v
	default:
		fmt.Fprintf(s.output, "Unknown parameter: %s\n", args[0])
		return
	}
	fmt.Fprintf(s.output, "%s set to %s\n", args[0], args[1])
}

// stream sends a streaming chat completion request and prints the response
// tokens as they arrive, returning the full assistant reply.
func (s *chatSession) stream(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model":       s.model,
		"messages":    s.messages,
		"stream":      true,
		"temperature": s.temperature,
		"top_p":       s.topP,
		"max_tokens":  s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(msg))
	}

	var reply strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue // skip malformed chunks
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		fmt.Fprint(s.output, token)
		reply.WriteString(token)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading stream: %w", err)
	}

	return reply.String(), nil
}
