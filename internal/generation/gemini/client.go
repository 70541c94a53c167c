package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/edutools-backend/internal/generation"
	"github.com/yungbote/edutools-backend/internal/platform/ctxutil"
	"github.com/yungbote/edutools-backend/internal/platform/httpx"
	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "imagen-4.0-generate-001"
	DefaultVideoModel = "veo-2.0-generate-001"
)

type Config struct {
	// BaseURL overrides the Gemini API endpoint. Empty uses the SDK default.
	BaseURL    string
	APIKey     string
	TextModel  string
	ImageModel string
	VideoModel string
	Timeout    time.Duration
	MaxRetries int
	Poll       generation.PollConfig
	HTTPClient *http.Client
}

// Client talks to the Gemini API through the genai SDK. The SDK sends the key as the
// x-goog-api-key header, so no request URL ever carries it.
type Client struct {
	log        *logger.Logger
	genai      *genai.Client
	textModel  string
	imageModel string
	videoModel string
	maxRetries int
	poll       generation.PollConfig
}

func New(log *logger.Logger, cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	if log == nil {
		log = logger.Nop()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  hc,
		HTTPOptions: genai.HTTPOptions{BaseURL: strings.TrimSpace(cfg.BaseURL)},
	})
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	c := &Client{
		log:        log.With("client", "GeminiClient"),
		genai:      gc,
		textModel:  firstNonEmpty(cfg.TextModel, DefaultTextModel),
		imageModel: firstNonEmpty(cfg.ImageModel, DefaultImageModel),
		videoModel: firstNonEmpty(cfg.VideoModel, DefaultVideoModel),
		maxRetries: cfg.MaxRetries,
		poll:       cfg.Poll,
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	return c, nil
}

func (c *Client) Name() string { return "gemini" }

// -------------------- Text --------------------

func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	var resp *genai.GenerateContentResponse
	err := c.retry(ctx, "generateContent", func(ctx context.Context) error {
		var err error
		resp, err = c.genai.Models.GenerateContent(ctx, c.textModel, genai.Text(prompt), nil)
		return err
	})
	if err != nil {
		return "", generation.Describe(generation.OpText, err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", generation.Describe(generation.OpText, generation.ErrNoText)
	}
	return text, nil
}

// -------------------- Images (Imagen) --------------------

func (c *Client) GenerateImage(ctx context.Context, prompt string) (generation.Image, error) {
	var resp *genai.GenerateImagesResponse
	err := c.retry(ctx, "generateImages", func(ctx context.Context) error {
		var err error
		resp, err = c.genai.Models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{NumberOfImages: 1})
		return err
	})
	if err != nil {
		return generation.Image{}, generation.Describe(generation.OpImage, err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return generation.Image{}, generation.Describe(generation.OpImage, generation.ErrNoImage)
	}
	// Clients always get PNG data URIs.
	return generation.Image{
		URI:      generation.DataURI("image/png", base64.StdEncoding.EncodeToString(resp.GeneratedImages[0].Image.ImageBytes)),
		MimeType: "image/png",
	}, nil
}

// -------------------- Videos (Veo) --------------------

func (c *Client) GenerateVideo(ctx context.Context, prompt string) (generation.Video, error) {
	v, err := c.generateVideo(ctx, prompt)
	if err != nil {
		return generation.Video{}, generation.Describe(generation.OpVideo, err)
	}
	return v, nil
}

func (c *Client) generateVideo(ctx context.Context, prompt string) (generation.Video, error) {
	var out generation.Video
	var op *genai.GenerateVideosOperation
	err := c.retry(ctx, "generateVideos", func(ctx context.Context) error {
		var err error
		op, err = c.genai.Models.GenerateVideos(ctx, c.videoModel, prompt, nil, &genai.GenerateVideosConfig{NumberOfVideos: 1})
		return err
	})
	if err != nil {
		return out, err
	}
	if strings.TrimSpace(op.Name) == "" && !op.Done {
		return out, errors.New("video operation missing name")
	}
	c.log.Info("Video operation started", "operation", op.Name)

	err = generation.Poll(ctx, c.poll, func(ctx context.Context) (bool, error) {
		if op.Done {
			return true, nil
		}
		var next *genai.GenerateVideosOperation
		if err := c.retry(ctx, "getVideosOperation", func(ctx context.Context) error {
			var err error
			next, err = c.genai.Operations.GetVideosOperation(ctx, op, nil)
			return err
		}); err != nil {
			return false, err
		}
		if next.Name == "" {
			next.Name = op.Name
		}
		op = next
		return op.Done, nil
	})
	if err != nil {
		return out, err
	}
	if op.Error != nil {
		b, _ := json.Marshal(map[string]any{"error": op.Error})
		return out, fmt.Errorf("video operation failed: %s", b)
	}

	video := firstVideo(op)
	if video == nil {
		return out, generation.ErrNoVideo
	}
	data := video.VideoBytes
	if len(data) == 0 {
		data, err = c.download(ctx, video)
		if err != nil {
			return out, err
		}
	}
	out.Data = data
	out.MimeType = strings.TrimSpace(strings.Split(video.MIMEType, ";")[0])
	if out.MimeType == "" || out.MimeType == "application/octet-stream" {
		out.MimeType = "video/mp4"
	}
	out.SourceURI = video.URI
	return out, nil
}

func firstVideo(op *genai.GenerateVideosOperation) *genai.Video {
	if op == nil || op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		return nil
	}
	v := op.Response.GeneratedVideos[0].Video
	if v == nil || (strings.TrimSpace(v.URI) == "" && len(v.VideoBytes) == 0) {
		return nil
	}
	return v
}

// download fetches media the Files API serves behind the API key.
func (c *Client) download(ctx context.Context, video *genai.Video) ([]byte, error) {
	data, err := c.genai.Files.Download(ctxutil.Default(ctx), genai.NewDownloadURIFromVideo(video), nil)
	if err != nil {
		return nil, apiError(err)
	}
	// The SDK returns the body for any status; an error payload is JSON, never media.
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		status := http.StatusBadGateway
		var body struct {
			Error *genai.APIError `json:"error"`
		}
		if json.Unmarshal(trimmed, &body) == nil && body.Error != nil && body.Error.Code > 0 {
			status = body.Error.Code
		}
		return nil, &generation.APIError{StatusCode: status, Body: string(trimmed)}
	}
	if len(data) == 0 {
		return nil, generation.ErrNoVideo
	}
	return data, nil
}

// -------------------- Transport --------------------

// apiError turns SDK API errors into *generation.APIError so status codes drive retries and
// the JSON error object drives the user-facing message.
func apiError(err error) error {
	var ae genai.APIError
	if !errors.As(err, &ae) {
		return err
	}
	code := ae.Code
	body, mErr := json.Marshal(map[string]any{"error": map[string]any{
		"code":    code,
		"message": ae.Message,
		"status":  ae.Status,
	}})
	if mErr != nil {
		body = []byte(ae.Message)
	}
	return &generation.APIError{StatusCode: code, Body: string(body)}
}

func (c *Client) retry(ctx context.Context, call string, fn func(ctx context.Context) error) error {
	ctx = ctxutil.Default(ctx)
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := apiError(fn(ctx))
		if err == nil {
			return nil
		}
		// 429 is surfaced immediately as a quota error.
		if !httpx.IsRetryableError(err) || isQuota(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(backoff)
		c.log.Warn("Gemini request retrying",
			"call", call,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err,
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
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
