package mcpServer

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	rag.Service
	ids       []string
	listErr   error
	answer    string
	answerErr error
	lastQuery commonModels.QueryContext
}

func (m *mockService) ListDocuments(ctx context.Context) ([]string, error) {
	return m.ids, m.listErr
}

func (m *mockService) Answer(ctx context.Context, q commonModels.QueryContext) (commonModels.AnswerResult, error) {
	m.lastQuery = q
	return commonModels.AnswerResult{Text: m.answer}, m.answerErr
}

func TestHandleListDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("lists ids", func(t *testing.T) {
		s := NewServer(&mockService{ids: []string{"a", "b"}})
		_, out, err := s.handleListDocuments(ctx, nil, ListDocumentsInput{})

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, out.Documents)
		assert.Equal(t, 2, out.Count)
	})

	t.Run("empty store", func(t *testing.T) {
		s := NewServer(&mockService{})
		_, out, err := s.handleListDocuments(ctx, nil, ListDocumentsInput{})

		require.NoError(t, err)
		assert.NotNil(t, out.Documents)
		assert.Zero(t, out.Count)
	})

	t.Run("store failure", func(t *testing.T) {
		s := NewServer(&mockService{listErr: errors.New("disk gone")})
		_, _, err := s.handleListDocuments(ctx, nil, ListDocumentsInput{})

		require.Error(t, err)
	})
}

func TestHandleAskDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("answers text only", func(t *testing.T) {
		svc := &mockService{answer: "Water boils at 100°C."}
		s := NewServer(svc)

		_, out, err := s.handleAskDocument(ctx, nil, AskDocumentInput{DocumentId: "doc-1", Question: "boiling point?", Emotion: "calm"})

		require.NoError(t, err)
		assert.Equal(t, "Water boils at 100°C.", out.Answer)
		assert.Equal(t, "doc-1", out.DocumentId)
		assert.True(t, svc.lastQuery.TextOnly)
		assert.Equal(t, "calm", svc.lastQuery.EmotionHint)
	})

	t.Run("missing document id", func(t *testing.T) {
		s := NewServer(&mockService{})
		_, _, err := s.handleAskDocument(ctx, nil, AskDocumentInput{Question: "q"})

		require.Error(t, err)
	})

	t.Run("unknown document", func(t *testing.T) {
		s := NewServer(&mockService{answerErr: ragErrors.NotFound("Document not found.")})
		_, _, err := s.handleAskDocument(ctx, nil, AskDocumentInput{DocumentId: "nope", Question: "q"})

		require.Error(t, err)
		assert.True(t, ragErrors.IsNotFound(err))
	})
}

func TestHandler(t *testing.T) {
	assert.NotNil(t, NewServer(&mockService{}).Handler())
}
