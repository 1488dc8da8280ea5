package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/rag/embedding"
	"golang.org/x/sync/errgroup"
)

//splitter

// TextSpan is a chunk of the source text and the byte offset it starts at.
type TextSpan struct {
	Text   string
	Offset int
}

// Separators ordered from "best" to "worst" for semantic meaning
var separators = []string{"\n\n", "\n", ". ", " "}

// SplitText cuts text into spans of at most targetSize bytes. Every span after
// the first starts overlap bytes before the end of the previous one (moved back
// to a rune boundary), so dropping the overlapping prefix of each span and
// concatenating restores the input exactly.
func SplitText(text string, targetSize int, overlap int) []TextSpan {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if targetSize <= 0 {
		targetSize = config.DefaultChunkSize
	}
	overlap = max(0, min(overlap, targetSize/2))

	var spans []TextSpan
	covered := 0
	for covered < len(text) {
		from := covered
		if len(spans) > 0 {
			ov := min(overlap, len(spans[len(spans)-1].Text))
			from = runeStart(text, covered-ov)
		}
		end := nextCut(text, covered, targetSize-(covered-from))
		spans = append(spans, TextSpan{Text: text[from:end], Offset: from})
		covered = end
	}
	return spans
}

// nextCut picks where the next span ends: after the last, best separator that
// fits in budget, else a hard cut on a rune boundary. It always advances.
func nextCut(text string, start int, budget int) int {
	budget = max(budget, 1)
	if len(text)-start <= budget {
		return len(text)
	}

	window := text[start : start+budget]
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return start + idx + len(sep)
		}
	}

	cut := runeStart(text, start+budget)
	if cut <= start {
		_, size := utf8.DecodeRuneInString(text[start:])
		cut = start + size
	}
	return cut
}

func runeStart(text string, pos int) int {
	for pos > 0 && pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

func getDocType(docPath string) commonModels.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".odt", ".rtf":
		return commonModels.DOCX
	case ".txt", ".md":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

func PrepareChunks(spans []TextSpan) []commonModels.DocChunk {
	chunks := make([]commonModels.DocChunk, 0, len(spans))
	for i, span := range spans {
		chunks = append(chunks, commonModels.DocChunk{
			Ordinal:      i,
			Text:         span.Text,
			SourceOffset: span.Offset,
		})
	}
	return chunks
}

// EmbedChunks fills in the embedding of every chunk. Batches run concurrently,
// at most parallelism at a time, and the first failure cancels the rest.
func EmbedChunks(ctx context.Context, chunks []commonModels.DocChunk, embedder embedding.Embedder, batchSize int, parallelism int) error {
	if batchSize <= 0 {
		batchSize = config.DefaultEmbeddingBatchSize
	}
	if parallelism <= 0 {
		parallelism = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		currentBatch := chunks[i:end]

		g.Go(func() error {
			texts := make([]string, len(currentBatch))
			for j, c := range currentBatch {
				texts[j] = c.Text
			}

			vectors, err := embedder.Embed(gctx, texts)
			if err != nil {
				return ragErrors.External(ragErrors.StageEmbedding, fmt.Errorf("embedding batch failed: %w", err))
			}
			if err := embedding.CheckVectors(vectors, len(texts)); err != nil {
				return err
			}
			// batches own disjoint ranges of chunks
			for j := range currentBatch {
				currentBatch[j].Embedding = vectors[j]
			}
			return nil
		})
	}
	return g.Wait()
}
