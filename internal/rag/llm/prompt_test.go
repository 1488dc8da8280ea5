package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChat struct {
	OnChat func(ctx context.Context, req ChatRequest) (string, error)
	last   ChatRequest
}

func (m *mockChat) Chat(ctx context.Context, req ChatRequest) (string, error) {
	m.last = req
	return m.OnChat(ctx, req)
}

func scored(texts ...string) []commonModels.ScoredChunk {
	out := make([]commonModels.ScoredChunk, len(texts))
	for i, t := range texts {
		out[i] = commonModels.ScoredChunk{DocChunk: commonModels.DocChunk{Ordinal: i, Text: t}}
	}
	return out
}

func TestBuildPrompt_KeepsRetrievalOrder(t *testing.T) {
	req := BuildPrompt("Why?", scored("omega passage", "alpha passage"), "")

	assert.Equal(t, config.ModelContext, req.System)
	assert.Less(t, strings.Index(req.User, "omega passage"), strings.Index(req.User, "alpha passage"))
	assert.True(t, strings.HasSuffix(req.User, "Question: Why?\nHelpful Answer:"))
	assert.NotContains(t, req.User, "feeling")
}

func TestBuildPrompt_EmotionHint(t *testing.T) {
	req := BuildPrompt("What is the boiling point?", scored("ctx"), "anxious")

	assert.Contains(t, req.User, "The user is feeling anxious. What is the boiling point?")
	assert.Contains(t, req.User, "2-3 words")
	assert.Contains(t, req.User, "do not state the user's feeling back")
}

func TestEmotionQuestion(t *testing.T) {
	assert.Equal(t, "q", EmotionQuestion("q", "  "))
	assert.True(t, strings.HasPrefix(EmotionQuestion("q", "sad"), "The user is feeling sad. q "))
}

func TestSynthesizer_Answer(t *testing.T) {
	chat := &mockChat{OnChat: func(ctx context.Context, req ChatRequest) (string, error) {
		return "  Water boils at 100°C.\n", nil
	}}
	s := NewSynthesizer(chat, 0.3)

	answer, err := s.Answer(context.Background(), "boiling?", scored("Water boils at 100°C."), "")

	require.NoError(t, err)
	assert.Equal(t, "Water boils at 100°C.", answer)
	assert.InDelta(t, 0.3, chat.last.Temperature, 1e-6)
}

func TestSynthesizer_Failures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"remote error", "", errors.New("503")},
		{"empty reply", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &mockChat{OnChat: func(ctx context.Context, req ChatRequest) (string, error) {
				return tt.reply, tt.err
			}}
			_, err := NewSynthesizer(chat, 0.3).Answer(context.Background(), "q", nil, "")

			require.Error(t, err)
			assert.Equal(t, ragErrors.KindExternal, ragErrors.KindOf(err))
			assert.Equal(t, ragErrors.StageAnswer, ragErrors.StageOf(err))
		})
	}
}
