package schedule

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/card-truth/internal/domain/fields"
	"github.com/FACorreiaa/card-truth/internal/domain/ingest"
	"github.com/FACorreiaa/card-truth/internal/domain/issuer"
	"github.com/FACorreiaa/card-truth/internal/domain/statement"
	"github.com/FACorreiaa/card-truth/internal/domain/truth"
	"github.com/FACorreiaa/card-truth/pkg/config"
)

func TestMergeAllCards(t *testing.T) {
	ctx := context.Background()
	repo := truth.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := ingest.NewService(repo, nil, issuer.New(), fields.New(),
		config.FeatureConfig{}, config.MergeConfig{DefaultCurrency: "USD"}, log)

	st := statement.NewCanonical()
	st.SetAmount(statement.FieldNewBalance, decimal.RequireFromString("100.00"))
	st.SetConfidence(statement.FieldNewBalance, 0.95)
	require.NoError(t, repo.PutLayer(ctx, truth.Layer{
		Name: truth.LayerStructured, CardID: "card-1", Statement: st,
		Confirmed: true, CapturedAt: time.Now(),
	}))

	s := NewScheduler(repo, svc, "", log)
	s.mergeAllCards()

	got, err := repo.GetTruth(ctx, "card-1")
	require.NoError(t, err)
	assert.Equal(t, "card-1", got.CardID)
	require.NotNil(t, got.Statement.NewBalance)
	assert.True(t, got.Statement.NewBalance.Equal(decimal.RequireFromString("100.00")))
}

func TestStartRejectsBadSpec(t *testing.T) {
	repo := truth.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := ingest.NewService(repo, nil, issuer.New(), fields.New(),
		config.FeatureConfig{}, config.MergeConfig{}, log)

	s := NewScheduler(repo, svc, "not a cron spec", log)
	assert.Error(t, s.Start())
}
