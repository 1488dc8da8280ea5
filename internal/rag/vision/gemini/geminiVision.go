package gemini

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/rag/vision"
	"github.com/akolanti/DocTalk/pkg/logger_i"
	"google.golang.org/genai"
)

type visionClient struct {
	client    *genai.Client
	modelName string
	logger    *logger_i.Logger
}

// NewVisionClient builds an image analyzer on the Gemini API.
func NewVisionClient(ctx context.Context, modelName string, apikey string, httpClient *http.Client) (vision.Analyzer, error) {
	if modelName == "" {
		modelName = config.VisionModelName
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apikey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	return &visionClient{client: c, modelName: modelName, logger: logger_i.NewLogger("vision_gemini")}, nil
}

func (v *visionClient) AnalyzeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			{InlineData: &genai.Blob{Data: image, MIMEType: mimeType}},
			{Text: prompt},
		}, genai.RoleUser),
	}

	result, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, nil)
	if err != nil {
		v.logger.WithContext(ctx).Error("Gemini image analysis failed", "error", err)
		return "", ragErrors.External(ragErrors.StageVision, err)
	}
	if result == nil {
		return "", ragErrors.External(ragErrors.StageVision, errors.New("empty gemini response"))
	}
	return result.Text(), nil
}
