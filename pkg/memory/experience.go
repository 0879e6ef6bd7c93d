package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	rterrors "github.com/jllopis/roundtable/pkg/errors"
)

// DefaultCollection is the collection experiences land in when none is set.
const DefaultCollection = "roundtable_experience"

// Experience is one accepted solution worth carrying across sessions.
type Experience struct {
	Task   string
	Plan   string
	Advice string
	Scores []float64
}

// Recalled is an experience retrieved for a new task, with how closely the
// tasks matched.
type Recalled struct {
	Experience
	Similarity float32
}

// ExperienceMemory persists accepted rounds in a vector collection keyed by
// the task text, so future sessions can recall how similar tasks were solved.
type ExperienceMemory struct {
	store      VectorStore
	embedder   Embedder
	collection string
	threshold  float32

	mu    sync.Mutex
	ready bool
}

// ExperienceOption configures an ExperienceMemory.
type ExperienceOption func(*ExperienceMemory)

// WithCollection sets the collection experiences are stored in.
func WithCollection(name string) ExperienceOption {
	return func(m *ExperienceMemory) {
		if name != "" {
			m.collection = name
		}
	}
}

// WithScoreThreshold drops recalled experiences scoring below the threshold.
func WithScoreThreshold(threshold float32) ExperienceOption {
	return func(m *ExperienceMemory) { m.threshold = threshold }
}

// NewExperienceMemory wires a vector store and an embedder into an experience
// memory. The collection is created lazily on first use, sized to the
// embedder's output.
func NewExperienceMemory(store VectorStore, embedder Embedder, opts ...ExperienceOption) (*ExperienceMemory, error) {
	if store == nil {
		return nil, rterrors.New(rterrors.CodeConfiguration, "experience memory requires a vector store", nil)
	}
	if embedder == nil {
		return nil, rterrors.New(rterrors.CodeConfiguration, "experience memory requires an embedder", nil)
	}
	m := &ExperienceMemory{
		store:      store,
		embedder:   embedder,
		collection: DefaultCollection,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Remember stores an accepted experience, embedding its task text.
func (m *ExperienceMemory) Remember(ctx context.Context, exp Experience) error {
	vec, err := m.embedder.Embed(ctx, exp.Task)
	if err != nil {
		return rterrors.New(rterrors.CodeMemory, "embed task for storage", err)
	}
	if err := m.ensureCollection(ctx, uint64(len(vec))); err != nil {
		return err
	}

	scores, err := json.Marshal(exp.Scores)
	if err != nil {
		return rterrors.New(rterrors.CodeMemory, "encode scores", err)
	}
	point := Point{
		ID:     uuid.NewString(),
		Vector: vec,
		Payload: map[string]interface{}{
			"task":   exp.Task,
			"plan":   exp.Plan,
			"advice": exp.Advice,
			"scores": string(scores),
		},
		Timestamp: time.Now().Unix(),
	}
	if err := m.store.Upsert(ctx, m.collection, []Point{point}); err != nil {
		return rterrors.New(rterrors.CodeMemory, "store experience", err)
	}
	return nil
}

// Recall returns up to limit experiences whose tasks are most similar to the
// given one, best match first. A limit of zero or less means three.
func (m *ExperienceMemory) Recall(ctx context.Context, task string, limit int) ([]Recalled, error) {
	if limit <= 0 {
		limit = 3
	}
	vec, err := m.embedder.Embed(ctx, task)
	if err != nil {
		return nil, rterrors.New(rterrors.CodeMemory, "embed task for recall", err)
	}
	if err := m.ensureCollection(ctx, uint64(len(vec))); err != nil {
		return nil, err
	}

	results, err := m.store.Search(ctx, m.collection, vec, limit, m.threshold)
	if err != nil {
		return nil, rterrors.New(rterrors.CodeMemory, "search experiences", err)
	}

	recalled := make([]Recalled, 0, len(results))
	for _, res := range results {
		exp := Experience{
			Task:   payloadString(res.Point.Payload, "task"),
			Plan:   payloadString(res.Point.Payload, "plan"),
			Advice: payloadString(res.Point.Payload, "advice"),
		}
		if raw := payloadString(res.Point.Payload, "scores"); raw != "" {
			_ = json.Unmarshal([]byte(raw), &exp.Scores)
		}
		recalled = append(recalled, Recalled{Experience: exp, Similarity: res.Score})
	}
	return recalled, nil
}

// Collection returns the collection name experiences are stored in.
func (m *ExperienceMemory) Collection() string {
	return m.collection
}

func (m *ExperienceMemory) ensureCollection(ctx context.Context, vectorSize uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready {
		return nil
	}
	if err := m.store.CreateCollection(ctx, m.collection, vectorSize); err != nil {
		return rterrors.New(rterrors.CodeMemory, "create experience collection", err)
	}
	m.ready = true
	return nil
}

func payloadString(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}
