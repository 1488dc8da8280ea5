package vision

import (
	"context"
	"encoding/base64"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/retry"
	"golang.org/x/sync/errgroup"
)

const MoodPrompt = "Analyze the facial expression in this image and determine the mood. Possible moods are: happy, sad, angry, nervous, confused, or neutral. Reply with the mood word only."

const DefaultDescriptionPrompt = "Describe the main elements, colors, and notable features in this image."

// Analyzer is a multimodal model that answers a prompt about one image.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error)
}

type VisionResult struct {
	Description string
	Mood        commonModels.Mood
}

type Fusion struct {
	analyzer Analyzer
}

func NewFusion(analyzer Analyzer) *Fusion {
	return &Fusion{analyzer: analyzer}
}

// Analyze runs the mood and description prompts concurrently and waits for
// both. Either failing fails the whole analysis.
func (f *Fusion) Analyze(ctx context.Context, image []byte, mimeType string, prompt string) (VisionResult, error) {
	if len(image) == 0 {
		return VisionResult{}, ragErrors.Validation("Image is empty.")
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultDescriptionPrompt
	}

	var moodReply, description string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		moodReply, err = f.analyzer.AnalyzeImage(gctx, image, mimeType, MoodPrompt)
		return err
	})
	g.Go(func() error {
		var err error
		description, err = f.analyzer.AnalyzeImage(gctx, image, mimeType, prompt)
		return err
	})
	if err := g.Wait(); err != nil {
		return VisionResult{}, ragErrors.External(ragErrors.StageVision, err)
	}

	return VisionResult{
		Description: strings.TrimSpace(description),
		Mood:        commonModels.ParseMood(moodReply),
	}, nil
}

var allowedExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// IsAllowedImage checks the upload's extension, case-insensitively.
func IsAllowedImage(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// MimeTypeFor prefers the extension and falls back to sniffing the bytes.
func MimeTypeFor(filename string, data []byte) string {
	if mime, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return mime
	}
	return DetectMimeType(data)
}

func DetectMimeType(data []byte) string {
	mime := http.DetectContentType(data)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		return "image/jpeg"
	}
	return mime
}

// DecodeImage decodes a base64 image that may carry a data URL prefix such as
// "data:image/png;base64,".
func DecodeImage(encoded string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	var mime string
	if strings.HasPrefix(encoded, "data:") {
		comma := strings.Index(encoded, ",")
		if comma < 0 {
			return nil, "", ragErrors.Validation("Invalid image data URL.")
		}
		header := encoded[len("data:"):comma]
		mime, _, _ = strings.Cut(header, ";")
		encoded = encoded[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", ragErrors.Validation("Image is not valid base64.")
	}
	if len(data) == 0 {
		return nil, "", ragErrors.Validation("Image is empty.")
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = DetectMimeType(data)
	}
	return data, mime, nil
}

type retryingAnalyzer struct {
	inner  Analyzer
	policy retry.Policy
}

func WithRetry(a Analyzer, policy retry.Policy) Analyzer {
	if !policy.Enabled() {
		return a
	}
	return &retryingAnalyzer{inner: a, policy: policy}
}

func (r *retryingAnalyzer) AnalyzeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (string, error) {
		return r.inner.AnalyzeImage(ctx, image, mimeType, prompt)
	})
}
