package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/yungbote/edutools-backend/internal/generation"
	"github.com/yungbote/edutools-backend/internal/platform/ctxutil"
)

type videoJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Code    string `json:"code,omitempty"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) GenerateVideo(ctx context.Context, prompt string) (generation.Video, error) {
	v, err := c.generateVideo(ctx, prompt)
	if err != nil {
		return generation.Video{}, generation.Describe(generation.OpVideo, err)
	}
	return v, nil
}

func (c *Client) generateVideo(ctx context.Context, prompt string) (generation.Video, error) {
	var out generation.Video
	job, err := c.createVideoJob(ctx, prompt)
	if err != nil {
		return out, err
	}
	if strings.TrimSpace(job.ID) == "" {
		return out, errors.New("video create missing id")
	}
	c.log.Info("Video job created", "video_id", job.ID, "model", c.videoModel)

	err = generation.Poll(ctx, c.poll, func(ctx context.Context) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(job.Status)) {
		case "completed", "succeeded":
			return true, nil
		case "failed", "canceled":
			return false, videoJobError(job)
		}
		next, err := c.getVideoJob(ctx, job.ID)
		if err != nil {
			return false, err
		}
		job = next
		switch strings.ToLower(strings.TrimSpace(job.Status)) {
		case "completed", "succeeded":
			return true, nil
		case "failed", "canceled":
			return false, videoJobError(job)
		}
		return false, nil
	})
	if err != nil {
		return out, err
	}

	data, ct, err := c.downloadVideoContent(ctx, job.ID)
	if err != nil {
		return out, err
	}
	out.Data = data
	out.MimeType = strings.TrimSpace(strings.Split(ct, ";")[0])
	if out.MimeType == "" || out.MimeType == "application/octet-stream" {
		out.MimeType = sniffVideoMime(data)
	}
	out.SourceURI = c.baseURL + "/videos/" + job.ID + "/content"
	return out, nil
}

func videoJobError(job videoJob) error {
	msg := "video generation failed"
	if job.Error != nil && strings.TrimSpace(job.Error.Message) != "" {
		msg = job.Error.Message
	}
	b, _ := json.Marshal(map[string]any{"error": map[string]any{"message": msg}})
	return errors.New(string(b))
}

func (c *Client) createVideoJob(ctx context.Context, prompt string) (videoJob, error) {
	var out videoJob
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("prompt", prompt)
	_ = w.WriteField("model", c.videoModel)
	if c.videoSize != "" {
		_ = w.WriteField("size", c.videoSize)
	}
	_ = w.Close()

	payload := buf.Bytes()
	err := c.retry(ctx, "videos", func(ctx context.Context) error {
		return c.doRaw(ctx, http.MethodPost, "/videos", bytes.NewReader(payload), w.FormDataContentType(), &out)
	})
	return out, err
}

func (c *Client) getVideoJob(ctx context.Context, id string) (videoJob, error) {
	var out videoJob
	err := c.retry(ctx, "videos/{id}", func(ctx context.Context) error {
		return c.doRaw(ctx, http.MethodGet, "/videos/"+id, nil, "", &out)
	})
	return out, err
}

func (c *Client) downloadVideoContent(ctx context.Context, id string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, c.baseURL+"/videos/"+id+"/content", nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, "", readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &generation.APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, resp.Header.Get("Content-Type"), nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &generation.APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func sniffVideoMime(b []byte) string {
	if len(b) >= 12 && bytes.Contains(b[:12], []byte("ftyp")) {
		return "video/mp4"
	}
	if len(b) >= 4 && b[0] == 0x1A && b[1] == 0x45 && b[2] == 0xDF && b[3] == 0xA3 {
		return "video/webm"
	}
	return "video/mp4"
}
