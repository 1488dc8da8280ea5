package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/DocTalk/internal/adapter/utils"
	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/rag/vectorDB"
	"github.com/akolanti/DocTalk/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var logger = logger_i.NewLogger("Qdrant")
var storeInstance *Store
var once sync.Once

const aliasPrefix = "doc_"

type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// errCollectionGone means the alias pointed at a collection that a concurrent
// rebuild dropped before it could be read.
var errCollectionGone = errors.New("collection dropped during read")

// Store publishes each build as a fresh collection and swaps the document's
// alias onto it, so readers resolve either the old or the new collection.
type Store struct {
	QObj    *qdrant.Client
	writers vectorDB.DocumentLocks
}

func NewStore(client *qdrant.Client) *Store {
	return &Store{QObj: client}
}

func GetQuadrantClient(ctx context.Context, cfg Config) *Store {
	once.Do(func() {
		res := newClient(cfg)
		if res != nil {
			storeInstance = NewStore(res)
			go closeQdrant(ctx, res)
		}
	})
	return storeInstance
}

func newClient(cfg Config) *qdrant.Client {
	port := cfg.Port
	if port == 0 {
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     cfg.Host,
		Port:     port,
		APIKey:   cfg.APIKey,
		UseTLS:   cfg.UseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate", "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.QdrantConnectionTimeout)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		logger.Error("qdrant health check failed", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
}

func aliasName(id string) string {
	return aliasPrefix + id
}

func collectionName(id string) string {
	return fmt.Sprintf("%s%s_%s", aliasPrefix, id, strings.ReplaceAll(utils.GetNewUUID(), "-", ""))
}

func (db *Store) Location(id string) string {
	return "qdrant://" + aliasName(id)
}

func (db *Store) Build(ctx context.Context, id string, chunks []commonModels.DocChunk, model string) error {
	if err := vectorDB.ValidateId(id); err != nil {
		return err
	}
	dimension, err := vectorDB.CheckChunks(chunks)
	if err != nil {
		return err
	}
	log := logger.WithContext(ctx).With("documentId", id)

	// the alias read below and the swap must not interleave with another build of id
	defer db.writers.Lock(id)()

	collection := collectionName(id)
	err = db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return ragErrors.Persistence("build", fmt.Errorf("create collection: %w", err))
	}

	if err := db.upsertAll(ctx, collection, chunks, model); err != nil {
		db.dropCollection(log, collection)
		return ragErrors.Persistence("build", err)
	}

	previous, err := db.aliasTarget(ctx, aliasName(id))
	if err != nil {
		db.dropCollection(log, collection)
		return ragErrors.Persistence("build", err)
	}

	// delete and create in one request so the alias is never dangling
	var ops []*qdrant.AliasOperations
	if previous != "" {
		ops = append(ops, qdrant.NewAliasDelete(aliasName(id)))
	}
	ops = append(ops, qdrant.NewAliasCreate(aliasName(id), collection))
	if err := db.QObj.UpdateAliases(ctx, ops); err != nil {
		db.dropCollection(log, collection)
		return ragErrors.Persistence("publish", err)
	}

	if previous != "" {
		db.dropCollection(log, previous)
	}
	log.Debug("index published", "collection", collection, "chunks", len(chunks))
	return nil
}

func (db *Store) upsertAll(ctx context.Context, collection string, chunks []commonModels.DocChunk, model string) error {
	ingestedAt := time.Now().UTC().Format(time.RFC3339)

	for start := 0; start < len(chunks); start += config.QdrantUpsertBatchSize {
		end := min(start+config.QdrantUpsertBatchSize, len(chunks))

		qdrantPoints := make([]*qdrant.PointStruct, 0, end-start)
		for _, chunk := range chunks[start:end] {
			qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(chunk.Ordinal)),
				Vectors: qdrant.NewVectors(chunk.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"text":        chunk.Text,
					"ordinal":     int64(chunk.Ordinal),
					"offset":      int64(chunk.SourceOffset),
					"model":       model,
					"ingested_at": ingestedAt,
				}),
			})
		}

		_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         qdrantPoints,
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("qdrant upsert failed: %w", err)
		}
	}
	return nil
}

func (db *Store) aliasTarget(ctx context.Context, alias string) (string, error) {
	aliases, err := db.QObj.ListAliases(ctx)
	if err != nil {
		return "", fmt.Errorf("list aliases: %w", err)
	}
	for _, a := range aliases {
		if a.GetAliasName() == alias {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

func (db *Store) dropCollection(log *logger_i.Logger, collection string) {
	// cleanup must survive a cancelled request
	ctx, cancel := context.WithTimeout(context.Background(), config.QdrantConnectionTimeout)
	defer cancel()
	if err := db.QObj.DeleteCollection(ctx, collection); err != nil {
		log.Warn("could not delete collection", "collection", collection, "error", err)
	}
}

func (db *Store) Load(ctx context.Context, id string) (*vectorDB.IndexHandle, error) {
	if err := vectorDB.ValidateId(id); err != nil {
		return nil, err
	}

	handle, err := db.loadGeneration(ctx, id)
	if errors.Is(err, errCollectionGone) {
		// a rebuild swapped the alias between resolving and reading, the new target is complete
		handle, err = db.loadGeneration(ctx, id)
	}
	if errors.Is(err, errCollectionGone) {
		return nil, ragErrors.NotFound(fmt.Sprintf("No index found for document %s.", id))
	}
	return handle, err
}

// loadGeneration resolves the alias once and reads every point of that one
// collection, so a concurrent rebuild cannot mix generations.
func (db *Store) loadGeneration(ctx context.Context, id string) (*vectorDB.IndexHandle, error) {
	collection, err := db.aliasTarget(ctx, aliasName(id))
	if err != nil {
		return nil, ragErrors.Persistence("load", err)
	}
	if collection == "" {
		return nil, ragErrors.NotFound(fmt.Sprintf("No index found for document %s.", id))
	}

	points, err := db.scrollAll(ctx, collection)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errCollectionGone
		}
		return nil, ragErrors.Persistence("load", err)
	}
	if len(points) == 0 {
		return nil, ragErrors.NotFound(fmt.Sprintf("No index found for document %s.", id))
	}

	handle := &vectorDB.IndexHandle{DocumentId: id}
	for _, p := range points {
		vector := p.GetVectors().GetVector().GetData()
		handle.Chunks = append(handle.Chunks, commonModels.DocChunk{
			Ordinal:      int(p.Payload["ordinal"].GetIntegerValue()),
			Text:         p.Payload["text"].GetStringValue(),
			SourceOffset: int(p.Payload["offset"].GetIntegerValue()),
			Embedding:    vector,
		})
		if handle.EmbeddingModel == "" {
			handle.EmbeddingModel = p.Payload["model"].GetStringValue()
		}
	}
	sort.Slice(handle.Chunks, func(i, j int) bool {
		return handle.Chunks[i].Ordinal < handle.Chunks[j].Ordinal
	})
	handle.Dimension = len(handle.Chunks[0].Embedding)
	return handle, nil
}

func (db *Store) scrollAll(ctx context.Context, collection string) ([]*qdrant.RetrievedPoint, error) {
	var all []*qdrant.RetrievedPoint
	var offset *qdrant.PointId
	for {
		page, next, err := db.QObj.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(config.QdrantScrollPageSize)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == nil {
			return all, nil
		}
		offset = next
	}
}

func (db *Store) List(ctx context.Context) ([]string, error) {
	aliases, err := db.QObj.ListAliases(ctx)
	if err != nil {
		return nil, ragErrors.Persistence("list", err)
	}
	ids := make([]string, 0, len(aliases))
	for _, a := range aliases {
		if id, ok := strings.CutPrefix(a.GetAliasName(), aliasPrefix); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (db *Store) Delete(ctx context.Context, id string) error {
	if err := vectorDB.ValidateId(id); err != nil {
		return err
	}
	alias := aliasName(id)
	defer db.writers.Lock(id)()

	collection, err := db.aliasTarget(ctx, alias)
	if err != nil {
		return ragErrors.Persistence("delete", err)
	}
	if collection == "" {
		return ragErrors.NotFound(fmt.Sprintf("No index found for document %s.", id))
	}
	if err := db.QObj.UpdateAliases(ctx, []*qdrant.AliasOperations{qdrant.NewAliasDelete(alias)}); err != nil {
		return ragErrors.Persistence("delete", err)
	}
	if err := db.QObj.DeleteCollection(ctx, collection); err != nil {
		return ragErrors.Persistence("delete", err)
	}
	return nil
}
