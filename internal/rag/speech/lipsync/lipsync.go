package lipsync

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/rag/speech"
	"github.com/akolanti/DocTalk/pkg/logger_i"
)

type Config struct {
	URL      string
	APIKey   string
	VoiceID  string
	Gender   string
	Language string
}

type avatarRequest struct {
	Gender     string `json:"gender"`
	Language   string `json:"language"`
	LipSyncAPI string `json:"lipSync_api"`
	Preset     string `json:"preset"`
	Text       string `json:"text"`
	VoiceAPI   string `json:"voice_api"`
	VoiceID    string `json:"voice_id"`
}

type avatarResponse struct {
	MP3  string `json:"mp3"`
	JSON struct {
		MouthCues []mouthCue `json:"mouthCues"`
	} `json:"json"`
}

type mouthCue struct {
	Start float64         `json:"start"`
	End   float64         `json:"end"`
	Value json.RawMessage `json:"value"`
}

// maxErrorBody bounds how much of a failed response ends up in the error.
const maxErrorBody = 512

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logger_i.Logger
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.VoiceID == "" {
		cfg.VoiceID = config.LipSyncVoiceID
	}
	if cfg.Gender == "" {
		cfg.Gender = config.LipSyncGender
	}
	if cfg.Language == "" {
		cfg.Language = config.LipSyncLanguage
	}
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger_i.NewLogger("speech_lipsync")}
}

// Synthesize returns empty speech for empty text without calling the service.
func (c *Client) Synthesize(ctx context.Context, text string) (speech.Speech, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return speech.Speech{}, nil
	}
	log := c.logger.WithContext(ctx)

	body, err := json.Marshal(avatarRequest{
		Gender:     c.cfg.Gender,
		Language:   c.cfg.Language,
		LipSyncAPI: config.LipSyncAPI,
		Preset:     config.LipSyncPreset,
		Text:       text,
		VoiceAPI:   config.LipSyncVoiceAPI,
		VoiceID:    c.cfg.VoiceID,
	})
	if err != nil {
		return speech.Speech{}, ragErrors.External(ragErrors.StageSpeech, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return speech.Speech{}, ragErrors.External(ragErrors.StageSpeech, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(config.LipSyncAPIKeyHead, c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("Lip-sync request failed", "error", err)
		return speech.Speech{}, ragErrors.External(ragErrors.StageSpeech, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Error("Lip-sync service returned an error", "status", resp.StatusCode)
		return speech.Speech{}, ragErrors.External(ragErrors.StageSpeech, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var out avatarResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return speech.Speech{}, ragErrors.External(ragErrors.StageSpeech, fmt.Errorf("decoding response: %w", err))
	}

	audio, err := base64.StdEncoding.DecodeString(out.MP3)
	if err != nil {
		return speech.Speech{}, ragErrors.External(ragErrors.StageSpeech, fmt.Errorf("decoding audio: %w", err))
	}

	visemes := make([]commonModels.Viseme, 0, len(out.JSON.MouthCues))
	for _, cue := range out.JSON.MouthCues {
		visemes = append(visemes, commonModels.Viseme{
			Shape: cueValue(cue.Value),
			Start: cue.Start,
			End:   cue.End,
		})
	}
	log.Debug("Speech synthesized", "audioBytes", len(audio), "visemes", len(visemes))

	return speech.Speech{Audio: audio, Visemes: visemes}, nil
}

// cueValue accepts both "X" and 3 style mouth shapes.
func cueValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strings.TrimSpace(string(raw))
}
