package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/edutools-backend/internal/generation"
	"github.com/yungbote/edutools-backend/internal/platform/ctxutil"
	"github.com/yungbote/edutools-backend/internal/platform/httpx"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultTextModel  = "gpt-4o-mini"
	DefaultImageModel = goopenai.CreateImageModelDallE3
	DefaultVideoModel = "sora-2"
	DefaultVideoSize  = "1280x720"
)

type Config struct {
	BaseURL    string
	APIKey     string
	TextModel  string
	ImageModel string
	VideoModel string
	VideoSize  string
	Timeout    time.Duration
	MaxRetries int
	Poll       generation.PollConfig
	HTTPClient *http.Client
}

// Client talks to OpenAI compatible endpoints. Chat and images go through go-openai;
// the videos API is called directly.
type Client struct {
	log        *logger.Logger
	api        *goopenai.Client
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	videoModel string
	videoSize  string
	maxRetries int
	poll       generation.PollConfig
	httpClient *http.Client
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if log == nil {
		log = logger.Nop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(firstNonEmpty(cfg.BaseURL, DefaultBaseURL), "/")

	apiCfg := goopenai.DefaultConfig(apiKey)
	apiCfg.BaseURL = baseURL
	apiCfg.HTTPClient = httpClient

	c := &Client{
		log:        log.With("client", "OpenAIClient"),
		api:        goopenai.NewClientWithConfig(apiCfg),
		baseURL:    baseURL,
		apiKey:     apiKey,
		textModel:  firstNonEmpty(cfg.TextModel, DefaultTextModel),
		imageModel: firstNonEmpty(cfg.ImageModel, DefaultImageModel),
		videoModel: firstNonEmpty(cfg.VideoModel, DefaultVideoModel),
		videoSize:  firstNonEmpty(cfg.VideoSize, DefaultVideoSize),
		maxRetries: cfg.MaxRetries,
		poll:       cfg.Poll,
		httpClient: httpClient,
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	return c, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	var resp goopenai.ChatCompletionResponse
	err := c.retry(ctx, "chat/completions", func(ctx context.Context) error {
		var err error
		resp, err = c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
			Model: c.textModel,
			Messages: []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleUser, Content: prompt},
			},
		})
		return err
	})
	if err != nil {
		return "", generation.Describe(generation.OpText, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", generation.Describe(generation.OpText, generation.ErrNoText)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) GenerateImage(ctx context.Context, prompt string) (generation.Image, error) {
	var resp goopenai.ImageResponse
	err := c.retry(ctx, "images/generations", func(ctx context.Context) error {
		var err error
		resp, err = c.api.CreateImage(ctx, goopenai.ImageRequest{
			Prompt:         prompt,
			Model:          c.imageModel,
			N:              1,
			Size:           goopenai.CreateImageSize1024x1024,
			ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
		})
		return err
	})
	if err != nil {
		return generation.Image{}, generation.Describe(generation.OpImage, err)
	}
	if len(resp.Data) == 0 {
		return generation.Image{}, generation.Describe(generation.OpImage, generation.ErrNoImage)
	}
	d := resp.Data[0]
	switch {
	case d.B64JSON != "":
		return generation.Image{URI: generation.DataURI("image/png", d.B64JSON), MimeType: "image/png"}, nil
	case d.URL != "":
		return generation.Image{URI: d.URL, MimeType: "image/png"}, nil
	}
	return generation.Image{}, generation.Describe(generation.OpImage, generation.ErrNoImage)
}

// retry runs fn with backoff on transient failures. go-openai errors are normalized to
// *generation.APIError first so status codes survive into generation.Describe.
func (c *Client) retry(ctx context.Context, path string, fn func(ctx context.Context) error) error {
	ctx = ctxutil.Default(ctx)
	backoff := 1 * time.Second
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := normalizeError(fn(ctx))
		if err == nil {
			return nil
		}
		if !httpx.IsRetryableError(err) || isQuota(err) || attempt == c.maxRetries {
			return err
		}
		sleepFor := httpx.JitterSleep(backoff)
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		body, _ := json.Marshal(map[string]any{"error": map[string]any{
			"code":    apiErr.HTTPStatusCode,
			"message": apiErr.Message,
			"type":    apiErr.Type,
		}})
		return &generation.APIError{StatusCode: apiErr.HTTPStatusCode, Body: string(body)}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		body := strings.TrimSpace(string(reqErr.Body))
		if body == "" && reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &generation.APIError{StatusCode: reqErr.HTTPStatusCode, Body: body}
	}
	return err
}

func isQuota(err error) bool {
	var ae *generation.APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusTooManyRequests
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
