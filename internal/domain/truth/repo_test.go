package truth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/card-truth/internal/domain/ledger"
	"github.com/FACorreiaa/card-truth/internal/domain/statement"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	boltRepo, err := OpenBolt(filepath.Join(t.TempDir(), "truth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { boltRepo.Close() })
	return map[string]Repository{
		"bolt":   boltRepo,
		"memory": NewMemory(),
	}
}

func TestRepositoryLayerRoundTrip(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			st := statement.NewCanonical()
			st.SetAmount(statement.FieldNewBalance, decimal.RequireFromString("1074.43"))
			st.SetConfidence(statement.FieldNewBalance, 0.95)

			layer := Layer{
				Name:       LayerPDF,
				CardID:     "card-1",
				Statement:  st,
				Confirmed:  true,
				CapturedAt: time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC),
				JobID:      "job-1",
			}
			require.NoError(t, repo.PutLayer(ctx, layer))

			got, err := repo.GetLayer(ctx, "card-1", LayerPDF)
			require.NoError(t, err)
			assert.True(t, got.Confirmed)
			assert.Equal(t, "job-1", got.JobID)
			require.NotNil(t, got.Statement.NewBalance)
			assert.True(t, got.Statement.NewBalance.Equal(decimal.RequireFromString("1074.43")))

			all, err := repo.Layers(ctx, "card-1")
			require.NoError(t, err)
			assert.Len(t, all, 1)

			_, err = repo.GetLayer(ctx, "card-1", LayerSummary)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, repo.DeleteLayer(ctx, "card-1", LayerPDF))
			_, err = repo.GetLayer(ctx, "card-1", LayerPDF)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRepositoryTransactionsAndCards(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			txs := []ledger.Transaction{
				{ID: "t1", CardID: "card-2", Date: time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC),
					Description: "COFFEE", Amount: decimal.RequireFromString("4.50"), Type: ledger.TypePurchase},
			}
			require.NoError(t, repo.PutTransactions(ctx, "card-2", txs))

			got, err := repo.Transactions(ctx, "card-2")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "COFFEE", got[0].Description)

			none, err := repo.Transactions(ctx, "card-none")
			require.NoError(t, err)
			assert.Empty(t, none)

			cards, err := repo.Cards(ctx)
			require.NoError(t, err)
			assert.Contains(t, cards, "card-2")
		})
	}
}

func TestRepositoryTruthRoundTrip(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			out := Merge("card-3", nil, MergeConfig{
				Now: func() time.Time { return time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC) },
			})
			require.NoError(t, repo.PutTruth(ctx, out))

			got, err := repo.GetTruth(ctx, "card-3")
			require.NoError(t, err)
			assert.Equal(t, "card-3", got.CardID)
			require.NotNil(t, got.Statement.MinimumDue)
			assert.True(t, got.Statement.MinimumDue.Equal(decimal.RequireFromString("25.00")))

			_, err = repo.GetTruth(ctx, "card-missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
