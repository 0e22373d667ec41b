package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPConfig configures an OpenAI-compatible chat-completion backend.
type HTTPConfig struct {
	Endpoint  string
	APIKey    string
	Model     string
	Timeout   time.Duration
	RateLimit float64 // requests per second; <= 0 disables limiting
	RateBurst int
}

// HTTP asks a chat-completion endpoint to write the summary.
type HTTP struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("narrative endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &HTTP{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *HTTP) Generate(ctx context.Context, in Input) (Result, error) {
	text, err := g.complete(ctx, prompt(in), 200)
	if err != nil {
		return Result{}, err
	}
	return Result{Summary: text, Message: "Generated by " + g.cfg.Model}, nil
}

// Draft asks the backend for a title first and then for a description of
// that title.
func (g *HTTP) Draft(ctx context.Context, userInput string) (Draft, error) {
	raw, err := g.complete(ctx, titlePrompt(userInput), 40)
	if err != nil {
		return Draft{}, fmt.Errorf("generate title: %w", err)
	}
	title := cleanTitle(raw)
	if title == "" {
		return Draft{}, errors.New("narrative backend returned an empty title")
	}
	description, err := g.complete(ctx, descriptionPrompt(title), 200)
	if err != nil {
		return Draft{}, fmt.Errorf("generate description: %w", err)
	}
	return Draft{
		Title:              title,
		Description:        description,
		TitleMessage:       "Title generated by " + g.cfg.Model,
		DescriptionMessage: "Description generated by " + g.cfg.Model,
	}, nil
}

// complete sends one user message and returns the trimmed reply.
func (g *HTTP) complete(ctx context.Context, content string, maxTokens int) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model:       g.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: content}},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call narrative backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("narrative backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("narrative backend returned no text")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func titlePrompt(userInput string) string {
	return "Write a short, clear task title (at most eight words) for this piece of work: " +
		strings.TrimSpace(userInput) + "\nAnswer with the title only."
}

func descriptionPrompt(title string) string {
	return fmt.Sprintf("Write a two or three sentence description for a task titled %q. "+
		"Say what done looks like. Answer with the description only.", title)
}

func prompt(in Input) string {
	h, m := hoursMinutes(in.TotalTimeSpent)
	var b strings.Builder
	fmt.Fprintf(&b, "Write a short, encouraging summary of my work day (%s). ", in.Date)
	fmt.Fprintf(&b, "I tracked %dh %dm. Completed: %d, in progress: %d, pending: %d.\n",
		h, m, in.CompletedTasks, in.InProgressTasks, in.PendingTasks)
	for _, t := range in.Tasks {
		th, tm := hoursMinutes(t.TimeSpent)
		fmt.Fprintf(&b, "- %s (%s): %dh %dm\n", t.Title, t.Status, th, tm)
	}
	b.WriteString("Answer in at most three sentences.")
	return b.String()
}
