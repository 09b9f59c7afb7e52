package truth

import (
	"context"
	"sort"
	"sync"

	"github.com/FACorreiaa/card-truth/internal/domain/ledger"
)

// MemoryRepository is an in-process Repository for tests and dry runs.
type MemoryRepository struct {
	mu     sync.RWMutex
	layers map[string]map[LayerName]Layer
	txs    map[string][]ledger.Transaction
	truths map[string]Truth
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		layers: make(map[string]map[LayerName]Layer),
		txs:    make(map[string][]ledger.Transaction),
		truths: make(map[string]Truth),
	}
}

func (r *MemoryRepository) PutLayer(_ context.Context, layer Layer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.layers[layer.CardID] == nil {
		r.layers[layer.CardID] = make(map[LayerName]Layer)
	}
	r.layers[layer.CardID][layer.Name] = layer
	return nil
}

func (r *MemoryRepository) GetLayer(_ context.Context, cardID string, name LayerName) (*Layer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.layers[cardID][name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := l
	return &cp, nil
}

func (r *MemoryRepository) Layers(_ context.Context, cardID string) (map[LayerName]*Layer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[LayerName]*Layer, len(r.layers[cardID]))
	for name, l := range r.layers[cardID] {
		cp := l
		out[name] = &cp
	}
	return out, nil
}

func (r *MemoryRepository) DeleteLayer(_ context.Context, cardID string, name LayerName) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.layers[cardID], name)
	return nil
}

func (r *MemoryRepository) PutTransactions(_ context.Context, cardID string, txs []ledger.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs[cardID] = append([]ledger.Transaction(nil), txs...)
	return nil
}

func (r *MemoryRepository) Transactions(_ context.Context, cardID string) ([]ledger.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ledger.Transaction(nil), r.txs[cardID]...), nil
}

func (r *MemoryRepository) PutTruth(_ context.Context, t *Truth) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.truths[t.CardID] = *t
	return nil
}

func (r *MemoryRepository) GetTruth(_ context.Context, cardID string) (*Truth, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.truths[cardID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := t
	return &cp, nil
}

func (r *MemoryRepository) Cards(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	for id := range r.layers {
		seen[id] = true
	}
	for id := range r.txs {
		seen[id] = true
	}
	for id := range r.truths {
		seen[id] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryRepository) Close() error { return nil }
