package qdrantDB

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/DocTalk/internal/adapter/utils"
	"github.com/akolanti/DocTalk/internal/config"
	"github.com/qdrant/go-client/qdrant"
)

// SemanticCache remembers answers per document. A question whose vector is at
// least cutoff similar to a cached one for the same document reuses its answer.
type SemanticCache struct {
	QObj       *qdrant.Client
	collection string
	cutoff     float32

	mu    sync.Mutex
	ready bool
}

func NewSemanticCache(client *qdrant.Client, collection string, cutoff float32) *SemanticCache {
	if collection == "" {
		collection = config.SemanticCacheCollection
	}
	if cutoff <= 0 {
		cutoff = config.CacheSimilarityCutoff
	}
	return &SemanticCache{QObj: client, collection: collection, cutoff: cutoff}
}

// ensureCollection creates the cache collection on first use, sized by the
// first vector saved. create=false only reports whether it exists.
func (c *SemanticCache) ensureCollection(ctx context.Context, dimension int, create bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return true, nil
	}

	exists, err := c.QObj.CollectionExists(ctx, c.collection)
	if err != nil {
		return false, fmt.Errorf("check cache collection: %w", err)
	}
	if !exists && create {
		err = c.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: c.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return false, fmt.Errorf("create cache collection: %w", err)
		}
		exists = true
	}
	c.ready = exists
	return exists, nil
}

func documentFilter(documentId string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatchKeyword("document_id", documentId)},
	}
}

func (c *SemanticCache) Lookup(ctx context.Context, documentId string, query []float32) (string, bool, error) {
	log := logger.WithContext(ctx).With("documentId", documentId)

	exists, err := c.ensureCollection(ctx, len(query), false)
	if err != nil || !exists {
		return "", false, err
	}

	searchResult, err := c.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(query...),
		Filter:         documentFilter(documentId),
		ScoreThreshold: qdrant.PtrOf(c.cutoff),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("cache query: %w", err)
	}
	if len(searchResult) == 0 {
		return "", false, nil
	}

	log.Debug("semantic cache hit", "score", searchResult[0].Score)
	return searchResult[0].Payload["answer"].GetStringValue(), true, nil
}

func (c *SemanticCache) Save(ctx context.Context, documentId string, query []float32, answer string) error {
	if _, err := c.ensureCollection(ctx, len(query), true); err != nil {
		return err
	}

	_, err := c.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(utils.GetNewUUID()),
				Vectors: qdrant.NewVectors(query...),
				Payload: qdrant.NewValueMap(map[string]any{
					"document_id": documentId,
					"answer":      answer,
					"timestamp":   time.Now().Unix(),
				}),
			},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("cache save: %w", err)
	}
	return nil
}

// Forget drops every cached answer of a document, used when its index is
// replaced or deleted.
func (c *SemanticCache) Forget(ctx context.Context, documentId string) error {
	exists, err := c.ensureCollection(ctx, 0, false)
	if err != nil || !exists {
		return err
	}

	_, err = c.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collection,
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(documentId)),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("cache forget: %w", err)
	}
	return nil
}
