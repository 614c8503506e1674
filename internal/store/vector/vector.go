// Package vector implements the vector half of the Persistence Writer (C5)
// over github.com/qdrant/go-client, keyed so that a chunk's vector point id
// equals its chunk_id (spec.md §4.5: relational and vector rows for the
// same chunk share an identifier).
package vector

import (
	"context"

	"github.com/qdrant/go-client/qdrant"

	"github.com/autollama/ingestor/internal/ingesterr"
)

// Store is a thin wrapper over a Qdrant collection.
type Store struct {
	client     *qdrant.Client
	collection string
}

func New(client *qdrant.Client, collection string) *Store {
	return &Store{client: client, collection: collection}
}

// EnsureCollection creates the collection if it doesn't already exist, with
// cosine distance over dimensions-sized vectors.
func (s *Store) EnsureCollection(ctx context.Context, dimensions int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return ingesterr.New("vector.EnsureCollection", ingesterr.NetworkTransient, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return ingesterr.New("vector.EnsureCollection", ingesterr.NetworkTransient, err)
	}
	return nil
}

// Upsert writes a single chunk's vector, keyed by chunkID so the relational
// and vector stores share an identity.
func (s *Store) Upsert(ctx context.Context, chunkID string, vec []float32, payload map[string]any) error {
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(chunkID),
				Vectors: qdrant.NewVectors(vec...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		return ingesterr.New("vector.Upsert", ingesterr.NetworkTransient, err)
	}
	return nil
}

// Delete removes the vector points for the given chunk IDs; its only
// caller is store.Writer.DeleteSessionVectors.
func (s *Store) Delete(ctx context.Context, chunkIDs []string) error {
	ids := make([]*qdrant.PointId, len(chunkIDs))
	for i, id := range chunkIDs {
		ids[i] = qdrant.NewIDUUID(id)
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(ids...),
	})
	if err != nil {
		return ingesterr.New("vector.Delete", ingesterr.NetworkTransient, err)
	}
	return nil
}

// Search performs a k-NN query, used only by operator/debug tooling; the
// ingestion pipeline itself is write-only against the vector store.
func (s *Store) Search(ctx context.Context, vec []float32, limit uint64) ([]*qdrant.ScoredPoint, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
	})
	if err != nil {
		return nil, ingesterr.New("vector.Search", ingesterr.NetworkTransient, err)
	}
	return points, nil
}
