package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"draw-guess/internal/game"
)

const defaultPrompt = `You are judging a drawing guessing game. The drawer's keyword is given ` +
	`together with a numbered list of guesses. Decide for each guess whether it ` +
	`names the same thing as the keyword (synonyms, plurals and minor spelling ` +
	`mistakes count as correct). Reply with only a JSON array, one object per ` +
	`guess in the same order: [{"is_correct": true, "reason": "..."}].`

// ErrNotConfigured is returned when no API key is set; rounds fall back to
// manual judging.
var ErrNotConfigured = errors.New("oracle API key is not configured")

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// Prompt replaces the built-in instructions when set.
	Prompt string
}

// Client asks an OpenAI-compatible chat completions endpoint to judge
// guesses.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.Prompt) == "" {
		cfg.Prompt = defaultPrompt
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		client.SetAuthToken(key)
	}
	return &Client{http: client, cfg: cfg, logger: logger}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Judge returns one verdict per guess, in order. The caller bounds the call
// with ctx; there are no retries.
func (c *Client) Judge(ctx context.Context, keyword string, guesses []string) ([]game.Verdict, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if len(guesses) == 0 {
		return []game.Verdict{}, nil
	}

	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.Prompt},
			{Role: "user", Content: buildQuestion(keyword, guesses)},
		},
	}

	started := time.Now()
	var parsed chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&parsed).
		SetError(&parsed).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("reach oracle: %w", err)
	}
	c.logger.Debug("oracle responded",
		zap.Int("status_code", resp.StatusCode()),
		zap.Int("guesses", len(guesses)),
		zap.Duration("elapsed", time.Since(started)),
	)
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("oracle error: %s", parsed.Error.Message)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("oracle request failed (%d)", resp.StatusCode())
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("oracle returned no choices")
	}

	verdicts, err := ParseVerdicts(parsed.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if len(verdicts) != len(guesses) {
		return nil, fmt.Errorf("oracle returned %d verdicts for %d guesses", len(verdicts), len(guesses))
	}
	return verdicts, nil
}

func buildQuestion(keyword string, guesses []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Keyword: %s\nGuesses:\n", keyword)
	for i, guess := range guesses {
		fmt.Fprintf(&b, "%d. %s\n", i+1, guess)
	}
	return b.String()
}

type rawVerdict struct {
	IsCorrect *bool  `json:"is_correct"`
	Judge     *bool  `json:"Judge"`
	Reason    string `json:"reason"`
	ReasonAlt string `json:"Reason"`
}

// ParseVerdicts reads the model's JSON array reply. Markdown code fences
// around the array are tolerated, and so are the capitalised Judge/Reason
// keys older prompts asked for.
func ParseVerdicts(content string) ([]game.Verdict, error) {
	text := stripFences(content)
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, errors.New("oracle reply is not a JSON array")
	}
	var raw []rawVerdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parse oracle reply: %w", err)
	}
	verdicts := make([]game.Verdict, 0, len(raw))
	for i, r := range raw {
		correct := r.IsCorrect
		if correct == nil {
			correct = r.Judge
		}
		if correct == nil {
			return nil, fmt.Errorf("oracle verdict %d has no decision", i+1)
		}
		reason := r.Reason
		if reason == "" {
			reason = r.ReasonAlt
		}
		verdicts = append(verdicts, game.Verdict{IsCorrect: *correct, Reason: strings.TrimSpace(reason)})
	}
	return verdicts, nil
}

func stripFences(content string) string {
	text := strings.TrimSpace(content)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
