package truth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/FACorreiaa/card-truth/internal/domain/ledger"
)

var (
	bucketLayers       = []byte("layers")
	bucketTransactions = []byte("transactions")
	bucketTruths       = []byte("truths")
)

// BoltRepository stores layers, ledgers and merged truths in a single
// bbolt file. Keys are "cardID/layerName" in the layers bucket and the
// bare card ID elsewhere.
type BoltRepository struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the store at path and ensures the
// buckets exist.
func OpenBolt(path string) (*BoltRepository, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketLayers, bucketTransactions, bucketTruths} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return &BoltRepository{db: db}, nil
}

func (r *BoltRepository) Close() error { return r.db.Close() }

func layerKey(cardID string, name LayerName) []byte {
	return []byte(cardID + "/" + string(name))
}

func (r *BoltRepository) PutLayer(ctx context.Context, layer Layer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf, err := json.Marshal(layer)
	if err != nil {
		return fmt.Errorf("encode layer: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLayers).Put(layerKey(layer.CardID, layer.Name), buf)
	})
}

func (r *BoltRepository) GetLayer(ctx context.Context, cardID string, name LayerName) (*Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *Layer
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketLayers).Get(layerKey(cardID, name))
		if raw == nil {
			return ErrNotFound
		}
		out = new(Layer)
		return json.Unmarshal(raw, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BoltRepository) Layers(ctx context.Context, cardID string) (map[LayerName]*Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[LayerName]*Layer)
	prefix := []byte(cardID + "/")
	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLayers).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var l Layer
			if err := json.Unmarshal(v, &l); err != nil {
				return fmt.Errorf("decode layer %s: %w", k, err)
			}
			out[l.Name] = &l
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BoltRepository) DeleteLayer(ctx context.Context, cardID string, name LayerName) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLayers).Delete(layerKey(cardID, name))
	})
}

func (r *BoltRepository) PutTransactions(ctx context.Context, cardID string, txs []ledger.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTransactions).Put([]byte(cardID), buf)
	})
}

func (r *BoltRepository) Transactions(ctx context.Context, cardID string) ([]ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []ledger.Transaction
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketTransactions).Get([]byte(cardID))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BoltRepository) PutTruth(ctx context.Context, t *Truth) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode truth: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTruths).Put([]byte(t.CardID), buf)
	})
}

func (r *BoltRepository) GetTruth(ctx context.Context, cardID string) (*Truth, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *Truth
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketTruths).Get([]byte(cardID))
		if raw == nil {
			return ErrNotFound
		}
		out = new(Truth)
		return json.Unmarshal(raw, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cards lists every card that has at least one layer, transaction set or
// merged truth.
func (r *BoltRepository) Cards(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLayers).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if i := bytes.IndexByte(k, '/'); i > 0 {
				seen[string(k[:i])] = true
			}
		}
		for _, b := range [][]byte{bucketTransactions, bucketTruths} {
			bc := tx.Bucket(b).Cursor()
			for k, _ := bc.First(); k != nil; k, _ = bc.Next() {
				seen[string(k)] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
