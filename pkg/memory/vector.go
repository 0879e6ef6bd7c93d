// Package memory provides cross-session experience recall over pluggable
// vector stores and embedders.
package memory

import "context"

// VectorStore is the interface a vector database backend implements.
type VectorStore interface {
	// Upsert adds or updates points in the given collection.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns the points nearest to the given vector.
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error)
	// CreateCollection creates a collection if it doesn't exist.
	CreateCollection(ctx context.Context, name string, vectorSize uint64) error
}

// Point is one stored vector with its payload.
type Point struct {
	ID        string                 `json:"id"`
	Vector    []float32              `json:"vector"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp int64                  `json:"timestamp"`
}

// SearchResult is one vector search hit.
type SearchResult struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
	Point Point   `json:"point"`
}

// Embedder converts text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
