package commonModels

import "time"

type Document struct {
	Id                  string     `json:"id"`
	Name                string     `json:"doc_name"`
	IndexPath           string     `json:"index_path"`
	ChunkCount          int        `json:"chunk_count"`
	EmbeddingModel      string     `json:"embedding_model"`
	ArchivePath         string     `json:"archive_path,omitempty"`
	LastIngestTimestamp time.Time  `json:"ingested_at"`
	ContentType         DocType    `json:"contentType"`
	Chunks              []DocChunk `json:"-"`
}

// DocChunk is a contiguous span of a document's text. SourceOffset is the byte
// offset of the chunk's first byte in the extracted text.
type DocChunk struct {
	Ordinal      int       `json:"ordinal"`
	Text         string    `json:"text"`
	SourceOffset int       `json:"offset"`
	Embedding    []float32 `json:"embedding,omitempty"`
}

type ScoredChunk struct {
	DocChunk
	Score float32 `json:"score"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"

type QueryContext struct {
	DocumentId    string
	Question      string
	EmotionHint   string
	Image         []byte
	ImageMimeType string
	// TextOnly skips speech synthesis, used by callers that cannot play audio.
	TextOnly bool
}

type AnswerResult struct {
	Text     string
	Mood     Mood
	Audio    []byte
	Visemes  []Viseme
	Degraded []string
}

func (a *AnswerResult) MarkDegraded(stage string) {
	for _, existing := range a.Degraded {
		if existing == stage {
			return
		}
	}
	a.Degraded = append(a.Degraded, stage)
}
