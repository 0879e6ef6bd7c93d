package memory

import (
	"context"
	"math"
	"sort"
	"sync"
)

// InMemoryStore is a VectorStore held entirely in process, ranking points by
// cosine similarity. It backs tests and local runs that have no vector
// database at hand.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Point
}

// NewInMemoryStore creates an empty in-process vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{collections: make(map[string][]Point)}
}

// CreateCollection registers a collection. The vector size is not enforced.
func (s *InMemoryStore) CreateCollection(_ context.Context, name string, _ uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = nil
	}
	return nil
}

// Upsert adds points to the collection, replacing any point with the same ID.
func (s *InMemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.collections[collection]
	for _, p := range points {
		replaced := false
		for i := range stored {
			if stored[i].ID == p.ID {
				stored[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			stored = append(stored, p)
		}
	}
	s.collections[collection] = stored
	return nil
}

// Search scores every point in the collection against the query vector and
// returns the best matches in descending order. A positive scoreThreshold
// drops points scoring below it.
func (s *InMemoryStore) Search(_ context.Context, collection string, vector []float32, limit int, scoreThreshold float32) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.collections[collection]
	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		score := cosineSimilarity(vector, p.Vector)
		if scoreThreshold > 0 && score < scoreThreshold {
			continue
		}
		results = append(results, SearchResult{ID: p.ID, Score: score, Point: p})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / math.Sqrt(normA*normB))
}
