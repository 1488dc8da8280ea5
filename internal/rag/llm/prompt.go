package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
)

const answerTemplate = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

%s

Question: %s
Helpful Answer:`

const emotionTemplate = "The user is feeling %s. %s Respond in a way that suits this emotion: acknowledge it in 2-3 words at most, then answer. Do not open with a long empathetic preamble and do not state the user's feeling back to them."

// EmotionQuestion folds the emotion hint into the question text. Without a
// hint the question is returned unchanged.
func EmotionQuestion(question string, emotionHint string) string {
	emotionHint = strings.TrimSpace(emotionHint)
	if emotionHint == "" {
		return question
	}
	return fmt.Sprintf(emotionTemplate, emotionHint, question)
}

// BuildPrompt puts the retrieved chunks, in retrieval order, ahead of the question.
func BuildPrompt(question string, chunks []commonModels.ScoredChunk, emotionHint string) ChatRequest {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return ChatRequest{
		System: config.ModelContext,
		User:   fmt.Sprintf(answerTemplate, strings.Join(texts, "\n\n"), EmotionQuestion(question, emotionHint)),
	}
}

type Synthesizer struct {
	provider    ChatProvider
	temperature float32
}

// NewSynthesizer falls back to config.ModelTemperature when temperature is not positive.
func NewSynthesizer(provider ChatProvider, temperature float32) *Synthesizer {
	if temperature <= 0 {
		temperature = config.ModelTemperature
	}
	return &Synthesizer{provider: provider, temperature: temperature}
}

func (s *Synthesizer) Answer(ctx context.Context, question string, chunks []commonModels.ScoredChunk, emotionHint string) (string, error) {
	req := BuildPrompt(question, chunks, emotionHint)
	req.Temperature = s.temperature

	answer, err := s.provider.Chat(ctx, req)
	if err != nil {
		return "", ragErrors.External(ragErrors.StageAnswer, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ragErrors.External(ragErrors.StageAnswer, errors.New("model returned an empty answer"))
	}
	return answer, nil
}
