package rag_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/rag"
	"github.com/akolanti/DocTalk/internal/rag/speech"
	"github.com/akolanti/DocTalk/internal/rag/vectorDB/fileDB"
	"github.com/akolanti/DocTalk/internal/rag/vision"
	"github.com/akolanti/DocTalk/pkg/logger_i"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleText = "The sky is blue.\n\nWater boils at 100°C."

type fixture struct {
	service  rag.Service
	store    *fileDB.Store
	embedder *MockEmbedder
	answerer *MockAnswerer
	vision   *MockVision
	speech   *MockSpeech
	archive  *MockArchive
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := fileDB.NewStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		embedder: &MockEmbedder{},
		answerer: &MockAnswerer{},
		vision:   &MockVision{},
		speech:   &MockSpeech{},
		archive:  &MockArchive{},
	}
	f.service = f.build(rag.Dependencies{
		Store:    f.store,
		Embedder: f.embedder,
		Answerer: f.answerer,
		Vision:   f.vision,
		Speech:   f.speech,
		Archive:  f.archive,
	})
	return f
}

func (f *fixture) build(deps rag.Dependencies) rag.Service {
	opts := rag.DefaultOptions()
	opts.ChunkSize = 30
	opts.ChunkOverlap = 0
	opts.TopK = 2
	opts.RequestTimeout = 5 * time.Second
	return rag.NewService(deps, opts)
}

func traceCtx() context.Context {
	return logger_i.ContextWithTraceID(context.Background(), "test-trace")
}

func (f *fixture) ingest(t *testing.T, text string) string {
	t.Helper()
	doc, err := f.service.IngestDocument(traceCtx(), rag.IngestRequest{Filename: "facts.txt", Content: []byte(text)})
	require.NoError(t, err)
	return doc.Id
}

func TestIngestDocument(t *testing.T) {
	f := newFixture(t)

	doc, err := f.service.IngestDocument(traceCtx(), rag.IngestRequest{Filename: "facts.txt", Content: []byte(sampleText)})

	require.NoError(t, err)
	assert.NotEmpty(t, doc.Id)
	assert.Equal(t, "facts.txt", doc.Name)
	assert.Equal(t, 2, doc.ChunkCount)
	assert.Equal(t, commonModels.TXT, doc.ContentType)
	assert.Equal(t, "archive/"+doc.Id+"/facts.txt", doc.ArchivePath)

	handle, err := f.store.Load(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Len(t, handle.Chunks, 2)
	assert.Equal(t, "mock-embedding", handle.EmbeddingModel)
}

func TestIngestDocument_Failures(t *testing.T) {
	tests := []struct {
		name     string
		req      rag.IngestRequest
		setup    func(f *fixture)
		wantKind ragErrors.Kind
	}{
		{
			name:     "no filename",
			req:      rag.IngestRequest{Content: []byte(sampleText)},
			wantKind: ragErrors.KindValidation,
		},
		{
			name:     "empty content",
			req:      rag.IngestRequest{Filename: "a.txt"},
			wantKind: ragErrors.KindValidation,
		},
		{
			name:     "unsupported type",
			req:      rag.IngestRequest{Filename: "a.exe", Content: []byte("MZ")},
			wantKind: ragErrors.KindValidation,
		},
		{
			name:     "whitespace only",
			req:      rag.IngestRequest{Filename: "a.txt", Content: []byte(" \n\n\t ")},
			wantKind: ragErrors.KindValidation,
		},
		{
			name:     "unsafe id",
			req:      rag.IngestRequest{DocumentId: "../x", Filename: "a.txt", Content: []byte(sampleText)},
			wantKind: ragErrors.KindValidation,
		},
		{
			name: "embedding down",
			req:  rag.IngestRequest{Filename: "a.txt", Content: []byte(sampleText)},
			setup: func(f *fixture) {
				f.embedder.OnEmbed = func(ctx context.Context, texts []string) ([][]float32, error) {
					return nil, errors.New("api limit")
				}
			},
			wantKind: ragErrors.KindExternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.service.IngestDocument(traceCtx(), tt.req)

			require.Error(t, err)
			assert.Equal(t, tt.wantKind, ragErrors.KindOf(err))
			ids, listErr := f.service.ListDocuments(context.Background())
			require.NoError(t, listErr)
			assert.Empty(t, ids, "nothing is published on failure")
		})
	}
}

func TestIngestDocument_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.archive.OnPut = func(ctx context.Context, docId string, filename string, data []byte) (string, error) {
		return "", errors.New("bucket missing")
	}

	doc, err := f.service.IngestDocument(traceCtx(), rag.IngestRequest{Filename: "facts.txt", Content: []byte(sampleText)})

	require.NoError(t, err)
	assert.Empty(t, doc.ArchivePath)
}

func TestIngestDocument_TwiceGivesIndependentIndices(t *testing.T) {
	f := newFixture(t)

	first := f.ingest(t, sampleText)
	second := f.ingest(t, sampleText)

	assert.NotEqual(t, first, second)
	ids, err := f.service.ListDocuments(context.Background())
	require.NoError(t, err)
	sort.Strings(ids)
	want := []string{first, second}
	sort.Strings(want)
	assert.Equal(t, want, ids)

	require.NoError(t, f.service.DeleteDocument(context.Background(), first))
	_, err = f.service.Answer(traceCtx(), commonModels.QueryContext{DocumentId: first, Question: "sky?"})
	assert.True(t, ragErrors.IsNotFound(err))
	_, err = f.service.Answer(traceCtx(), commonModels.QueryContext{DocumentId: second, Question: "sky?"})
	assert.NoError(t, err)
}

func TestAnswer_RetrievesRelevantChunk(t *testing.T) {
	f := newFixture(t)
	id := f.ingest(t, sampleText)

	result, err := f.service.Answer(traceCtx(), commonModels.QueryContext{
		DocumentId: id,
		Question:   "At what temperature does water boil?",
	})

	require.NoError(t, err)
	assert.Contains(t, result.Text, "100")
	assert.Equal(t, []byte("mp3"), result.Audio)
	assert.Len(t, result.Visemes, 1)
	assert.Empty(t, result.Degraded)
	assert.Equal(t, result.Text, f.speech.LastText)
}

func TestAnswer_EmotionHintReachesAnswerer(t *testing.T) {
	f := newFixture(t)
	id := f.ingest(t, sampleText)

	_, err := f.service.Answer(traceCtx(), commonModels.QueryContext{DocumentId: id, Question: "What color is the sky?", EmotionHint: "sad"})

	require.NoError(t, err)
	assert.Equal(t, "What color is the sky?", f.answerer.LastQuestion)
	assert.Equal(t, "sad", f.answerer.LastEmotion)
}

func TestAnswer_Failures(t *testing.T) {
	tests := []struct {
		name      string
		query     func(id string) commonModels.QueryContext
		setup     func(f *fixture)
		wantKind  ragErrors.Kind
		wantStage string
	}{
		{
			name:     "empty question",
			query:    func(id string) commonModels.QueryContext { return commonModels.QueryContext{DocumentId: id, Question: "   "} },
			wantKind: ragErrors.KindValidation,
		},
		{
			name: "unknown document",
			query: func(id string) commonModels.QueryContext {
				return commonModels.QueryContext{DocumentId: "does-not-exist", Question: "why?"}
			},
			wantKind: ragErrors.KindNotFound,
		},
		{
			name: "query embedding down",
			query: func(id string) commonModels.QueryContext {
				return commonModels.QueryContext{DocumentId: id, Question: "why?"}
			},
			setup: func(f *fixture) {
				f.embedder.OnEmbed = func(ctx context.Context, texts []string) ([][]float32, error) {
					return nil, errors.New("503")
				}
			},
			wantKind:  ragErrors.KindExternal,
			wantStage: ragErrors.StageEmbedding,
		},
		{
			name: "query dimension mismatch",
			query: func(id string) commonModels.QueryContext {
				return commonModels.QueryContext{DocumentId: id, Question: "why?"}
			},
			setup: func(f *fixture) {
				f.embedder.OnEmbed = func(ctx context.Context, texts []string) ([][]float32, error) {
					return [][]float32{{1, 2, 3}}, nil
				}
			},
			wantKind:  ragErrors.KindExternal,
			wantStage: ragErrors.StageEmbedding,
		},
		{
			name: "answer model down",
			query: func(id string) commonModels.QueryContext {
				return commonModels.QueryContext{DocumentId: id, Question: "why?"}
			},
			setup: func(f *fixture) {
				f.answerer.OnAnswer = func(ctx context.Context, q string, c []commonModels.ScoredChunk, e string) (string, error) {
					return "", errors.New("provider down")
				}
			},
			wantKind:  ragErrors.KindExternal,
			wantStage: ragErrors.StageAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.ingest(t, sampleText)
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.service.Answer(traceCtx(), tt.query(id))

			require.Error(t, err)
			assert.Equal(t, tt.wantKind, ragErrors.KindOf(err))
			if tt.wantStage != "" {
				assert.Equal(t, tt.wantStage, ragErrors.StageOf(err))
			}
			assert.Empty(t, f.speech.LastText, "speech never runs for a failed answer")
		})
	}
}

func TestAnswer_ImageIsFusedIntoAnswer(t *testing.T) {
	f := newFixture(t)
	id := f.ingest(t, sampleText)

	result, err := f.service.Answer(traceCtx(), commonModels.QueryContext{
		DocumentId:  id,
		Question:    "At what temperature does water boil?",
		EmotionHint: "curious",
		Image:       []byte{0x89, 'P', 'N', 'G'},
	})

	require.NoError(t, err)
	assert.Equal(t, "Water boils at 100°C. A kettle on a stove.", result.Text)
	assert.Equal(t, commonModels.MoodHappy, result.Mood)
	assert.Contains(t, f.vision.LastPrompt, "The user is feeling curious.")
	assert.Equal(t, result.Text, f.speech.LastText)
}

func TestAnswer_VisionFailureDegrades(t *testing.T) {
	f := newFixture(t)
	id := f.ingest(t, sampleText)
	f.vision.OnAnalyze = func(ctx context.Context, image []byte, mimeType string, prompt string) (vision.VisionResult, error) {
		return vision.VisionResult{}, errors.New("vision quota")
	}

	result, err := f.service.Answer(traceCtx(), commonModels.QueryContext{
		DocumentId: id,
		Question:   "At what temperature does water boil?",
		Image:      []byte{1, 2, 3},
	})

	require.NoError(t, err)
	assert.Equal(t, "Water boils at 100°C.", result.Text)
	assert.NotEmpty(t, result.Audio)
	assert.Equal(t, []string{ragErrors.StageVision}, result.Degraded)
}

func TestAnswer_SpeechFailureDegrades(t *testing.T) {
	f := newFixture(t)
	id := f.ingest(t, sampleText)
	f.speech.OnSynthesize = func(ctx context.Context, text string) (speech.Speech, error) {
		return speech.Speech{}, errors.New("lip-sync down")
	}

	result, err := f.service.Answer(traceCtx(), commonModels.QueryContext{DocumentId: id, Question: "At what temperature does water boil?"})

	require.NoError(t, err)
	assert.Contains(t, result.Text, "100")
	assert.Empty(t, result.Audio)
	assert.Empty(t, result.Visemes)
	assert.Equal(t, []string{ragErrors.StageSpeech}, result.Degraded)
}

func TestAnswer_MissingEnrichmentsDegrade(t *testing.T) {
	f := newFixture(t)
	id := f.ingest(t, sampleText)
	s := f.build(rag.Dependencies{Store: f.store, Embedder: f.embedder, Answerer: f.answerer})

	result, err := s.Answer(traceCtx(), commonModels.QueryContext{DocumentId: id, Question: "sky?", Image: []byte{1}})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Text)
	assert.Equal(t, []string{ragErrors.StageVision, ragErrors.StageSpeech}, result.Degraded)
}

func TestAnswer_TextOnlySkipsSpeech(t *testing.T) {
	f := newFixture(t)
	id := f.ingest(t, sampleText)

	result, err := f.service.Answer(traceCtx(), commonModels.QueryContext{DocumentId: id, Question: "sky?", TextOnly: true})

	require.NoError(t, err)
	assert.Empty(t, result.Audio)
	assert.Empty(t, result.Degraded)
	assert.Empty(t, f.speech.LastText)
}

func TestAnalyzeImage(t *testing.T) {
	f := newFixture(t)
	var gotMime string
	f.vision.OnAnalyze = func(ctx context.Context, image []byte, mimeType string, prompt string) (vision.VisionResult, error) {
		gotMime = mimeType
		return vision.VisionResult{Description: "A red apple.", Mood: commonModels.MoodNeutral}, nil
	}

	result, err := f.service.AnalyzeImage(traceCtx(), rag.ImageRequest{Filename: "Apple.PNG", Image: []byte{1, 2}, Prompt: "What fruit?"})

	require.NoError(t, err)
	assert.Equal(t, "A red apple.", result.Text)
	assert.Equal(t, commonModels.MoodNeutral, result.Mood)
	assert.Equal(t, "image/png", gotMime)
	assert.Equal(t, "What fruit?", f.vision.LastPrompt)
	assert.Equal(t, "A red apple.", f.speech.LastText)
}

func TestAnalyzeImage_Failures(t *testing.T) {
	tests := []struct {
		name      string
		req       rag.ImageRequest
		setup     func(f *fixture)
		wantKind  ragErrors.Kind
		wantMsg   string
		wantStage string
	}{
		{
			name:     "unsupported type",
			req:      rag.ImageRequest{Filename: "notes.txt", Image: []byte("hello")},
			wantKind: ragErrors.KindValidation,
			wantMsg:  "Unsupported file type",
		},
		{
			name:     "no filename",
			req:      rag.ImageRequest{Image: []byte{1}},
			wantKind: ragErrors.KindValidation,
		},
		{
			name:     "empty image",
			req:      rag.ImageRequest{Filename: "a.png"},
			wantKind: ragErrors.KindValidation,
		},
		{
			name: "vision down is fatal",
			req:  rag.ImageRequest{Filename: "a.jpg", Image: []byte{1}},
			setup: func(f *fixture) {
				f.vision.OnAnalyze = func(ctx context.Context, image []byte, mimeType string, prompt string) (vision.VisionResult, error) {
					return vision.VisionResult{}, errors.New("quota")
				}
			},
			wantKind:  ragErrors.KindExternal,
			wantStage: ragErrors.StageVision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.service.AnalyzeImage(traceCtx(), tt.req)

			require.Error(t, err)
			assert.Equal(t, tt.wantKind, ragErrors.KindOf(err))
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
			if tt.wantStage != "" {
				assert.Equal(t, tt.wantStage, ragErrors.StageOf(err))
			}
		})
	}
}

func TestAnalyzeImage_SpeechFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.speech.OnSynthesize = func(ctx context.Context, text string) (speech.Speech, error) {
		return speech.Speech{}, errors.New("down")
	}

	result, err := f.service.AnalyzeImage(traceCtx(), rag.ImageRequest{Filename: "a.webp", Image: []byte{1}})

	require.NoError(t, err)
	assert.Equal(t, "A kettle on a stove.", result.Text)
	assert.Equal(t, vision.DefaultDescriptionPrompt, f.vision.LastPrompt)
	assert.Equal(t, []string{ragErrors.StageSpeech}, result.Degraded)
}

func (f *fixture) withAnswerCache(cache rag.AnswerCache) rag.Service {
	return f.build(rag.Dependencies{
		Store:       f.store,
		Embedder:    f.embedder,
		Answerer:    f.answerer,
		Vision:      f.vision,
		Speech:      f.speech,
		AnswerCache: cache,
	})
}

func TestAnswer_RepeatedQuestionIsServedFromCache(t *testing.T) {
	f := newFixture(t)
	id := f.ingest(t, sampleText)
	cache := &MockAnswerCache{}
	s := f.withAnswerCache(cache)
	q := commonModels.QueryContext{DocumentId: id, Question: "At what temperature does water boil?"}

	first, err := s.Answer(traceCtx(), q)
	require.NoError(t, err)
	second, err := s.Answer(traceCtx(), q)
	require.NoError(t, err)

	assert.Equal(t, 1, f.answerer.Calls)
	assert.Equal(t, 1, cache.Saves)
	assert.Equal(t, first.Text, second.Text)
	assert.NotEmpty(t, second.Audio)
}

func TestAnswer_CacheIsScopedToDocument(t *testing.T) {
	f := newFixture(t)
	first := f.ingest(t, sampleText)
	second := f.ingest(t, "Ice melts at 0°C.")
	s := f.withAnswerCache(&MockAnswerCache{})

	_, err := s.Answer(traceCtx(), commonModels.QueryContext{DocumentId: first, Question: "temperature?"})
	require.NoError(t, err)
	_, err = s.Answer(traceCtx(), commonModels.QueryContext{DocumentId: second, Question: "temperature?"})
	require.NoError(t, err)

	assert.Equal(t, 2, f.answerer.Calls)
}

func TestAnswer_CacheBypassedForImagesAndEmotion(t *testing.T) {
	f := newFixture(t)
	id := f.ingest(t, sampleText)
	cache := &MockAnswerCache{}
	s := f.withAnswerCache(cache)

	queries := []commonModels.QueryContext{
		{DocumentId: id, Question: "sky?", EmotionHint: "sad"},
		{DocumentId: id, Question: "sky?", EmotionHint: "sad"},
		{DocumentId: id, Question: "sky?", Image: []byte("\x89PNG\r\n\x1a\n")},
	}
	for _, q := range queries {
		_, err := s.Answer(traceCtx(), q)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, f.answerer.Calls)
	assert.Zero(t, cache.Saves)
}

func TestAnswer_CacheFailureFallsBackToAnswerer(t *testing.T) {
	f := newFixture(t)
	id := f.ingest(t, sampleText)
	s := f.withAnswerCache(&MockAnswerCache{
		OnLookup: func(ctx context.Context, documentId string, query []float32) (string, bool, error) {
			return "", false, errors.New("qdrant down")
		},
	})

	result, err := s.Answer(traceCtx(), commonModels.QueryContext{DocumentId: id, Question: "At what temperature does water boil?"})

	require.NoError(t, err)
	assert.Contains(t, result.Text, "100")
	assert.Empty(t, result.Degraded)
}

func TestCachedAnswersAreForgottenOnReingestAndDelete(t *testing.T) {
	f := newFixture(t)
	cache := &MockAnswerCache{}
	s := f.withAnswerCache(cache)
	ctx := traceCtx()

	_, err := s.IngestDocument(ctx, rag.IngestRequest{DocumentId: "facts", Filename: "facts.txt", Content: []byte(sampleText)})
	require.NoError(t, err)
	_, err = s.Answer(ctx, commonModels.QueryContext{DocumentId: "facts", Question: "sky?"})
	require.NoError(t, err)
	require.Len(t, cache.Entries["facts"], 1)

	_, err = s.IngestDocument(ctx, rag.IngestRequest{DocumentId: "facts", Filename: "facts.txt", Content: []byte("The sky is green.")})
	require.NoError(t, err)
	assert.Empty(t, cache.Entries["facts"])

	require.NoError(t, s.DeleteDocument(ctx, "facts"))
	assert.Equal(t, []string{"facts", "facts", "facts"}, cache.Forgotten)
}
