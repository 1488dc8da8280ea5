package rag_test

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/rag/speech"
	"github.com/akolanti/DocTalk/internal/rag/vectorDB"
	"github.com/akolanti/DocTalk/internal/rag/vision"
)

const mockDimensions = 32

// MockEmbedder implements embedding.Embedder. Without OnEmbed it hashes words
// into a bag-of-words vector, so texts sharing words score close together.
type MockEmbedder struct {
	OnEmbed func(ctx context.Context, texts []string) ([][]float32, error)
	Calls   int
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.Calls++
	if m.OnEmbed != nil {
		return m.OnEmbed(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = BagOfWords(t)
	}
	return out, nil
}

func (m *MockEmbedder) Model() string {
	return "mock-embedding"
}

func BagOfWords(text string) []float32 {
	v := make([]float32, mockDimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%mockDimensions]++
	}
	v[0] += 0.01
	return v
}

// MockAnswerer implements llm.Answerer. By default it answers with the best chunk.
type MockAnswerer struct {
	Calls        int
	OnAnswer     func(ctx context.Context, question string, chunks []commonModels.ScoredChunk, emotionHint string) (string, error)
	LastQuestion string
	LastEmotion  string
}

func (m *MockAnswerer) Answer(ctx context.Context, question string, chunks []commonModels.ScoredChunk, emotionHint string) (string, error) {
	m.Calls++
	m.LastQuestion, m.LastEmotion = question, emotionHint
	if m.OnAnswer != nil {
		return m.OnAnswer(ctx, question, chunks, emotionHint)
	}
	if len(chunks) == 0 {
		return "I don't know.", nil
	}
	return chunks[0].Text, nil
}

// MockVision implements rag.VisionFuser
type MockVision struct {
	OnAnalyze  func(ctx context.Context, image []byte, mimeType string, prompt string) (vision.VisionResult, error)
	LastPrompt string
}

func (m *MockVision) Analyze(ctx context.Context, image []byte, mimeType string, prompt string) (vision.VisionResult, error) {
	m.LastPrompt = prompt
	if m.OnAnalyze != nil {
		return m.OnAnalyze(ctx, image, mimeType, prompt)
	}
	return vision.VisionResult{Description: "A kettle on a stove.", Mood: commonModels.MoodHappy}, nil
}

// MockSpeech implements speech.Synthesizer
type MockSpeech struct {
	OnSynthesize func(ctx context.Context, text string) (speech.Speech, error)
	LastText     string
}

func (m *MockSpeech) Synthesize(ctx context.Context, text string) (speech.Speech, error) {
	m.LastText = text
	if m.OnSynthesize != nil {
		return m.OnSynthesize(ctx, text)
	}
	return speech.Speech{
		Audio:   []byte("mp3"),
		Visemes: []commonModels.Viseme{{Shape: "A", Start: 0, End: 0.2}},
	}, nil
}

// MockArchive implements storage.Archive
type MockArchive struct {
	OnPut func(ctx context.Context, docId string, filename string, data []byte) (string, error)
}

func (m *MockArchive) Put(ctx context.Context, docId string, filename string, data []byte) (string, error) {
	if m.OnPut != nil {
		return m.OnPut(ctx, docId, filename, data)
	}
	return "archive/" + docId + "/" + filename, nil
}

type cachedAnswer struct {
	query  []float32
	answer string
}

// MockAnswerCache implements rag.AnswerCache in memory with the same cosine
// cutoff as the qdrant cache.
type MockAnswerCache struct {
	OnLookup  func(ctx context.Context, documentId string, query []float32) (string, bool, error)
	Entries   map[string][]cachedAnswer
	Saves     int
	Forgotten []string
}

func (m *MockAnswerCache) Lookup(ctx context.Context, documentId string, query []float32) (string, bool, error) {
	if m.OnLookup != nil {
		return m.OnLookup(ctx, documentId, query)
	}
	for _, e := range m.Entries[documentId] {
		if vectorDB.CosineSimilarity(e.query, query) >= 0.95 {
			return e.answer, true, nil
		}
	}
	return "", false, nil
}

func (m *MockAnswerCache) Save(ctx context.Context, documentId string, query []float32, answer string) error {
	m.Saves++
	if m.Entries == nil {
		m.Entries = map[string][]cachedAnswer{}
	}
	m.Entries[documentId] = append(m.Entries[documentId], cachedAnswer{query: query, answer: answer})
	return nil
}

func (m *MockAnswerCache) Forget(ctx context.Context, documentId string) error {
	m.Forgotten = append(m.Forgotten, documentId)
	delete(m.Entries, documentId)
	return nil
}
