package chroma

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/custodia-labs/retrieva/internal/core/ports/driven"
)

// Metadata attribute names stored alongside each chunk. Query results
// are rebuilt from these, so renaming any of them invalidates existing
// collections.
const (
	metaDocumentID      = "document_id"
	metaDocumentVersion = "document_version"
	metaSourceFilename  = "source_filename"
	metaChunkIndex      = "chunk_index"
	metaTokenCount      = "token_count"
	metaPageLabel       = "page_label"
)

// collectionPrefix namespaces retrieva collections on a shared Chroma
// server.
const collectionPrefix = "retrieva_"

// maxCollectionNameLength is Chroma's collection name limit.
const maxCollectionNameLength = 63

// Store is a ChromaDB-backed implementation of driven.VectorStore.
// Each tenant maps to one collection created with the l2 space, which
// serves squared euclidean distances.
type Store struct {
	client chromago.Client

	mu          sync.Mutex
	collections map[string]chromago.Collection
}

var _ driven.VectorStore = (*Store)(nil)

// NewStore connects to a ChromaDB server. If baseURL is empty the
// client's default (http://localhost:8000) is used.
func NewStore(baseURL string) (*Store, error) {
	var opts []chromago.ClientOption
	if baseURL != "" {
		opts = append(opts, chromago.WithBaseURL(baseURL))
	}

	client, err := chromago.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating chroma client: %w", err)
	}

	return &Store{
		client:      client,
		collections: make(map[string]chromago.Collection),
	}, nil
}

// Upsert writes chunk records into the tenant's collection, replacing
// entries that share a key.
func (s *Store) Upsert(ctx context.Context, tenantID string, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	collection, err := s.collection(ctx, tenantID)
	if err != nil {
		return err
	}

	ids := make([]chromago.DocumentID, 0, len(records))
	texts := make([]string, 0, len(records))
	vectors := make([]embeddings.Embedding, 0, len(records))
	metadatas := make([]chromago.DocumentMetadata, 0, len(records))

	for _, record := range records {
		ids = append(ids, chromago.DocumentID(record.Key))
		texts = append(texts, record.Content)
		vectors = append(vectors, embeddings.NewEmbeddingFromFloat32(record.Embedding))
		metadatas = append(metadatas, chromago.NewDocumentMetadata(
			chromago.NewStringAttribute(metaDocumentID, record.DocumentID),
			chromago.NewIntAttribute(metaDocumentVersion, int64(record.DocumentVersion)),
			chromago.NewStringAttribute(metaSourceFilename, record.SourceFilename),
			chromago.NewIntAttribute(metaChunkIndex, int64(record.ChunkIndex)),
			chromago.NewIntAttribute(metaTokenCount, int64(record.TokenCount)),
			chromago.NewStringAttribute(metaPageLabel, record.PageLabel),
		))
	}

	err = collection.Upsert(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(vectors...),
		chromago.WithMetadatas(metadatas...),
	)
	if err != nil {
		return fmt.Errorf("upserting %d records: %w", len(records), err)
	}
	return nil
}

// Query returns the k nearest chunks to the query vector, nearest
// first.
func (s *Store) Query(ctx context.Context, tenantID string, vector []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	collection, err := s.collection(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	results, err := collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return []driven.VectorHit{}, nil
	}

	documents := documentGroups[0]
	hits := make([]driven.VectorHit, 0, len(documents))
	for i, doc := range documents {
		var meta map[string]any
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			meta = metadataMap(metadataGroups[0][i])
		}

		var distance float64
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			distance = float64(distanceGroups[0][i])
		}

		hits = append(hits, driven.VectorHit{
			Content:         doc.ContentString(),
			DocumentID:      metaString(meta, metaDocumentID),
			DocumentVersion: metaInt(meta, metaDocumentVersion),
			SourceFilename:  metaString(meta, metaSourceFilename),
			ChunkIndex:      metaInt(meta, metaChunkIndex),
			TokenCount:      metaInt(meta, metaTokenCount),
			PageLabel:       metaString(meta, metaPageLabel),
			Distance:        distance,
		})
	}

	return hits, nil
}

// DeleteDocument removes every stored chunk of a document, across all
// versions.
func (s *Store) DeleteDocument(ctx context.Context, tenantID, documentID string) error {
	collection, err := s.collection(ctx, tenantID)
	if err != nil {
		return err
	}

	err = collection.Delete(ctx, chromago.WithWhereDelete(
		chromago.EqString(metaDocumentID, documentID),
	))
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	return nil
}

// DeleteDocumentVersion removes the chunks of one document version.
func (s *Store) DeleteDocumentVersion(ctx context.Context, tenantID, documentID string, version int) error {
	collection, err := s.collection(ctx, tenantID)
	if err != nil {
		return err
	}

	err = collection.Delete(ctx, chromago.WithWhereDelete(
		chromago.And(
			chromago.EqString(metaDocumentID, documentID),
			chromago.EqInt(metaDocumentVersion, version),
		),
	))
	if err != nil {
		return fmt.Errorf("deleting document %s version %d: %w", documentID, version, err)
	}
	return nil
}

// Count returns the number of stored chunks for the tenant.
func (s *Store) Count(ctx context.Context, tenantID string) (int, error) {
	collection, err := s.collection(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	count, err := collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting collection: %w", err)
	}
	return int(count), nil
}

// Close releases the underlying HTTP client.
func (s *Store) Close() error {
	return s.client.Close()
}

// collection returns the tenant's collection, creating it on first
// use. Collections are cached per tenant for the store's lifetime.
func (s *Store) collection(ctx context.Context, tenantID string) (chromago.Collection, error) {
	name := collectionName(tenantID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if collection, ok := s.collections[name]; ok {
		return collection, nil
	}

	collection, err := s.client.GetOrCreateCollection(ctx, name,
		chromago.WithCollectionMetadataCreate(chromago.NewMetadata(
			// Squared L2 keeps distances interchangeable with the
			// in-memory backend.
			chromago.NewStringAttribute("hnsw:space", "l2"),
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("getting collection %s: %w", name, err)
	}

	s.collections[name] = collection
	return collection, nil
}

// collectionName derives a valid Chroma collection name from a tenant
// ID. The mapping is deterministic so every process addresses the same
// collection for a tenant.
func collectionName(tenantID string) string {
	var b strings.Builder
	b.WriteString(collectionPrefix)

	for _, r := range strings.ToLower(tenantID) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	name := b.String()
	if len(name) > maxCollectionNameLength {
		name = name[:maxCollectionNameLength]
	}
	// Collection names must end alphanumeric
	name = strings.TrimRight(name, "-_.")
	return name
}

// metadataMap converts a chroma metadata value into a plain map. The
// client type exposes no direct accessors, so values take a round trip
// through JSON.
func metadataMap(meta chromago.DocumentMetadata) map[string]any {
	if meta == nil {
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// metaString reads a string attribute, tolerating missing keys.
func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

// metaInt reads an integer attribute. JSON decoding yields float64 for
// all numbers.
func metaInt(meta map[string]any, key string) int {
	if meta == nil {
		return 0
	}
	switch v := meta[key].(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
