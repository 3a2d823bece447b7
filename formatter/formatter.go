package formatter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"voicenote/log"
)

const (
	DefaultURL   = "https://api.openai.com/v1/chat/completions"
	DefaultModel = "gpt-4o-mini"
)

const defaultPrompt = `你是一个文本格式整理工具。严格遵循以下规则：
1. 使用简体中文（不要使用繁体字）
2. 英文单词和短语保持原样不变
3. 为文本添加合适的标点符号（中文使用中文标点，英文使用英文标点）
4. 优化段落格式
5. 不要改变原文的任何词句含义
6. 只返回格式化后的文本，不要添加任何其他对话或解释性文字
7. 不要添加任何前缀或后缀，直接返回处理后的文本`

var ErrEmptyResponse = errors.New("formatter: empty completion")

type Config struct {
	APIKey      string
	URL         string
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client cleans up raw transcript text with a single chat completion.
type Client struct {
	cfg  Config
	http *tracedClient
}

func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Prompt == "" {
		cfg.Prompt = defaultPrompt
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, http: newTracedClient(cfg.Timeout)}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Format returns the formatted text, or raw unchanged when the request fails
// for any reason. It never returns an error.
func (c *Client) Format(ctx context.Context, raw string) string {
	out, err := c.TryFormat(ctx, raw)
	if err != nil {
		log.Warnf("format failed, keeping raw text: %v", err)
		return raw
	}
	return out
}

// TryFormat is Format with the failure reported instead of swallowed.
func (c *Client) TryFormat(ctx context.Context, raw string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.Prompt},
			{Role: "user", Content: raw},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completions error %d: %s", resp.StatusCode, strings.TrimSpace(string(resp.Body)))
	}

	var cr chatResponse
	if err := json.Unmarshal(resp.Body, &cr); err != nil {
		return "", fmt.Errorf("chat completions parse error: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("chat completions error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
