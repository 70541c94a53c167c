package mock

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"image/color"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/yungbote/edutools-backend/internal/generation"
)

const (
	imageSize     = 512
	cardTextLimit = 280
)

// Backend answers every prompt locally. Output is deterministic for a given prompt.
type Backend struct {
	// VideoDelay simulates a long running video operation.
	VideoDelay time.Duration

	// Faces cache glyphs and are not safe for concurrent use, so each render builds its own.
	font *truetype.Font
}

func New() (*Backend, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse mock font: %w", err)
	}
	return &Backend{font: f}, nil
}

func (b *Backend) Name() string { return "mock" }

func (b *Backend) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", generation.Describe(generation.OpText, err)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", generation.Describe(generation.OpText, generation.ErrNoText)
	}

	var sb strings.Builder
	sb.WriteString("# Mock response\n\n")
	sb.WriteString("## Prompt\n\n")
	sb.WriteString(firstLine(prompt))
	sb.WriteString("\n\n## Notes\n\n")
	fmt.Fprintf(&sb, "- Prompt length: %d characters\n", len(prompt))
	fmt.Fprintf(&sb, "- Fingerprint: %s\n", fingerprint(prompt))
	if strings.Contains(strings.ToLower(prompt), "table") {
		sb.WriteString("\n| Criterion | Excellent | Developing |\n")
		sb.WriteString("| --- | --- | --- |\n")
		sb.WriteString("| Clarity | Ideas are clear | Ideas are unclear |\n")
		sb.WriteString("| Evidence | Strong support | Little support |\n")
	}
	return sb.String(), nil
}

func (b *Backend) GenerateImage(ctx context.Context, prompt string) (generation.Image, error) {
	if err := ctx.Err(); err != nil {
		return generation.Image{}, generation.Describe(generation.OpImage, err)
	}
	png, err := b.renderCard(prompt)
	if err != nil {
		return generation.Image{}, generation.Describe(generation.OpImage, err)
	}
	return generation.Image{
		URI:      generation.DataURI("image/png", base64.StdEncoding.EncodeToString(png)),
		MimeType: "image/png",
	}, nil
}

func (b *Backend) GenerateVideo(ctx context.Context, prompt string) (generation.Video, error) {
	if b.VideoDelay > 0 {
		t := time.NewTimer(b.VideoDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return generation.Video{}, generation.Describe(generation.OpVideo, ctx.Err())
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return generation.Video{}, generation.Describe(generation.OpVideo, err)
	}
	return generation.Video{
		Data:      fakeMP4(prompt),
		MimeType:  "video/mp4",
		SourceURI: "mock://video/" + fingerprint(prompt),
	}, nil
}

func (b *Backend) renderCard(prompt string) ([]byte, error) {
	dc := gg.NewContext(imageSize, imageSize)

	sum := sha256.Sum256([]byte(prompt))
	dc.SetColor(color.NRGBA{R: 40 + sum[0]%120, G: 60 + sum[1]%120, B: 90 + sum[2]%120, A: 255})
	dc.DrawRectangle(0, 0, imageSize, imageSize)
	dc.Fill()

	dc.SetFontFace(truetype.NewFace(b.font, &truetype.Options{Size: 22, DPI: 72, Hinting: font.HintingNone}))
	dc.SetColor(color.White)
	text := truncateRunes(strings.TrimSpace(prompt), cardTextLimit)
	dc.DrawStringWrapped(text, imageSize/2, imageSize/2, 0.5, 0.5, imageSize-64, 1.4, gg.AlignCenter)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// fakeMP4 is an ftyp box followed by a free box carrying the prompt.
func fakeMP4(prompt string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0x18})
	buf.WriteString("ftypisom")
	buf.Write([]byte{0, 0, 2, 0})
	buf.WriteString("isommp41")

	payload := []byte(prompt)
	n := 8 + len(payload)
	buf.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
	buf.WriteString("free")
	buf.Write(payload)
	return buf.Bytes()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func fingerprint(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:6])
}
