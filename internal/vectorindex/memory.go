package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
)

// MemoryIndex is a brute-force in-process index.
type MemoryIndex struct {
	mu         sync.RWMutex
	dims       int
	namespaces map[string]map[string]apptype.IndexEntry
}

// NewMemoryIndex returns an empty index accepting dims-length vectors.
func NewMemoryIndex(dims int) *MemoryIndex {
	return &MemoryIndex{dims: dims, namespaces: make(map[string]map[string]apptype.IndexEntry)}
}

func (m *MemoryIndex) Dimensions() int { return m.dims }

func (m *MemoryIndex) Close() error { return nil }

func (m *MemoryIndex) Upsert(_ context.Context, namespace string, entries []apptype.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if namespace == "" {
		return fmt.Errorf("namespace must be a non-empty string")
	}
	if err := validateEntries(m.dims, entries); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = make(map[string]apptype.IndexEntry)
		m.namespaces[namespace] = ns
	}
	for _, e := range entries {
		v := make([]float32, len(e.Vector))
		copy(v, e.Vector)
		ns[e.ID] = apptype.IndexEntry{ID: e.ID, Vector: v, Text: e.Text}
	}
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, namespace string, vector []float32, topK int) ([]apptype.Match, error) {
	if err := validateQuery(m.dims, namespace, vector); err != nil {
		return nil, err
	}
	topK = normalizeTopK(topK)
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns := m.namespaces[namespace]
	if len(ns) == 0 {
		return nil, fmt.Errorf("namespace %q: %w", namespace, apptype.ErrNamespaceNotFound)
	}
	matches := make([]apptype.Match, 0, len(ns))
	for _, e := range ns {
		matches = append(matches, apptype.Match{ID: e.ID, Score: cosine(vector, e.Vector), Text: e.Text})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) Count(_ context.Context, namespace string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.namespaces[namespace]), nil
}

func (m *MemoryIndex) DeleteNamespace(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, namespace)
	return nil
}

func (m *MemoryIndex) Prune(_ context.Context, namespace string, keep []string) (int, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id := range m.namespaces[namespace] {
		if _, ok := keepSet[id]; !ok {
			delete(m.namespaces[namespace], id)
			removed++
		}
	}
	return removed, nil
}

// cosine returns the cosine similarity of a and b, or 0 when either is zero.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
