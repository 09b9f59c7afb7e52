package truth

import (
	"context"
	"errors"

	"github.com/FACorreiaa/card-truth/internal/domain/ledger"
)

// ErrNotFound is returned when a card or layer does not exist.
var ErrNotFound = errors.New("truth: not found")

// Repository persists truth layers and the transaction ledger per card.
// Implementations must make PutLayer atomic: a failed write leaves the
// previous layer intact.
type Repository interface {
	PutLayer(ctx context.Context, layer Layer) error
	GetLayer(ctx context.Context, cardID string, name LayerName) (*Layer, error)
	Layers(ctx context.Context, cardID string) (map[LayerName]*Layer, error)
	DeleteLayer(ctx context.Context, cardID string, name LayerName) error

	PutTransactions(ctx context.Context, cardID string, txs []ledger.Transaction) error
	Transactions(ctx context.Context, cardID string) ([]ledger.Transaction, error)

	PutTruth(ctx context.Context, t *Truth) error
	GetTruth(ctx context.Context, cardID string) (*Truth, error)

	Cards(ctx context.Context) ([]string, error)
	Close() error
}
