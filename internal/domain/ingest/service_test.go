package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/card-truth/internal/domain/extract"
	"github.com/FACorreiaa/card-truth/internal/domain/fields"
	"github.com/FACorreiaa/card-truth/internal/domain/issuer"
	"github.com/FACorreiaa/card-truth/internal/domain/ledger"
	"github.com/FACorreiaa/card-truth/internal/domain/statement"
	"github.com/FACorreiaa/card-truth/internal/domain/truth"
	"github.com/FACorreiaa/card-truth/pkg/config"
)

const cleanStatementText = `CHASE Statement
Account ending in 4242
Statement Period: 10/05/2024 to 11/04/2024
Previous Balance: USD 900.00
Payments and Credits: USD -500.00
Purchases: USD 650.00
Fees Charged: USD 10.00
Interest Charged: USD 14.43
New Balance: USD 1,074.43
Minimum Payment Due: USD 40.00
Payment Due Date: 12/01/2024
Credit Limit: USD 5,000.00
`

type fakeSource struct {
	res *extract.Result
	err error
}

func (f *fakeSource) Extract(context.Context, string, string) (*extract.Result, error) {
	return f.res, f.err
}

func allFeatures() config.FeatureConfig {
	return config.FeatureConfig{
		PasteIngestion:      true,
		StructuredIngestion: true,
		PDFIngestion:        true,
		ImageOCR:            true,
		InstallmentInfer:    true,
	}
}

func newTestService(src TextSource, features config.FeatureConfig) (*Service, *truth.MemoryRepository) {
	repo := truth.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, src, issuer.New(), fields.New(), features,
		config.MergeConfig{DefaultDueInDays: 25, DefaultMinimumCents: 2500, DefaultCurrency: "USD"}, log)
	return svc, repo
}

func TestIngestPasteCleanStatement(t *testing.T) {
	svc, repo := newTestService(nil, allFeatures())
	ctx := context.Background()

	out, err := svc.IngestPaste(ctx, "card-1", cleanStatementText)
	require.NoError(t, err)

	assert.NotEmpty(t, out.JobID)
	assert.Equal(t, extract.MethodPlain, out.Method)
	assert.False(t, out.Statement.NeedsUserConfirm)
	assert.GreaterOrEqual(t, out.Report.Overall, 0.7)

	layer, err := repo.GetLayer(ctx, "card-1", truth.LayerSummary)
	require.NoError(t, err)
	assert.True(t, layer.Confirmed, "pasted text lands in the summary layer")

	_, err = repo.GetLayer(ctx, "card-1", truth.LayerPDF)
	assert.ErrorIs(t, err, truth.ErrNotFound, "paste never writes the pdf layer")

	require.NotNil(t, out.Truth)
	assert.Equal(t, truth.LayerSummary, out.Truth.BasedOn)
	require.NotNil(t, out.Truth.Statement.NewBalance)
	assert.True(t, out.Truth.Statement.NewBalance.Equal(decimal.RequireFromString("1074.43")))
}

func TestIngestDocumentRequiresConfirmation(t *testing.T) {
	src := &fakeSource{res: &extract.Result{
		Text:       cleanStatementText,
		Method:     extract.MethodPDFText,
		Confidence: 1.0,
	}}
	svc, repo := newTestService(src, allFeatures())
	ctx := context.Background()

	out, err := svc.IngestDocument(ctx, "card-1", "statement.pdf", "")
	require.NoError(t, err)
	assert.False(t, out.Statement.NeedsUserConfirm)

	layer, err := repo.GetLayer(ctx, "card-1", truth.LayerPDF)
	require.NoError(t, err)
	assert.False(t, layer.Confirmed, "even a clean document parse waits for the user")

	// unconfirmed pdf layer contributes nothing to the merge
	assert.Equal(t, truth.LayerDefaults, out.Truth.BasedOn)

	merged, err := svc.ApplyConfirmed(ctx, "card-1", ConfirmationData{})
	require.NoError(t, err)
	assert.Equal(t, truth.LayerPDF, merged.BasedOn)

	layer, err = repo.GetLayer(ctx, "card-1", truth.LayerPDF)
	require.NoError(t, err)
	assert.True(t, layer.Confirmed)
}

func TestIngestDocumentFlaggedThenConfirmed(t *testing.T) {
	broken := strings.Replace(cleanStatementText,
		"New Balance: USD 1,074.43", "New Balance: USD 2,000.00", 1)
	src := &fakeSource{res: &extract.Result{
		Text:       broken,
		Method:     extract.MethodPDFText,
		Confidence: 1.0,
	}}
	svc, repo := newTestService(src, allFeatures())
	ctx := context.Background()

	out, err := svc.IngestDocument(ctx, "card-1", "statement.pdf", "")
	require.NoError(t, err)
	assert.True(t, out.Statement.NeedsUserConfirm)

	layer, err := repo.GetLayer(ctx, "card-1", truth.LayerPDF)
	require.NoError(t, err)
	assert.False(t, layer.Confirmed)

	// flagged layer is excluded, so merge falls back to defaults
	assert.Equal(t, truth.LayerDefaults, out.Truth.BasedOn)
	assert.True(t, out.Truth.Statement.MinimumDue.Equal(decimal.RequireFromString("25.00")))

	merged, err := svc.ApplyConfirmed(ctx, "card-1", ConfirmationData{
		Corrections: map[statement.Field]string{
			statement.FieldNewBalance: "1,074.43",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, truth.LayerPDF, merged.BasedOn)
	require.NotNil(t, merged.Statement.NewBalance)
	assert.True(t, merged.Statement.NewBalance.Equal(decimal.RequireFromString("1074.43")))

	layer, err = repo.GetLayer(ctx, "card-1", truth.LayerPDF)
	require.NoError(t, err)
	assert.True(t, layer.Confirmed)
	assert.False(t, layer.Statement.NeedsUserConfirm)
}

func TestIngestPasteFeatureDisabled(t *testing.T) {
	features := allFeatures()
	features.PasteIngestion = false
	svc, _ := newTestService(nil, features)

	_, err := svc.IngestPaste(context.Background(), "card-1", cleanStatementText)
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestIngestDocumentGates(t *testing.T) {
	features := allFeatures()
	features.PDFIngestion = false
	features.ImageOCR = false
	svc, _ := newTestService(&fakeSource{}, features)
	ctx := context.Background()

	_, err := svc.IngestDocument(ctx, "card-1", "statement.pdf", "")
	assert.ErrorIs(t, err, ErrFeatureDisabled)

	_, err = svc.IngestDocument(ctx, "card-1", "statement.png", "")
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestIngestDocumentScalesOCRConfidence(t *testing.T) {
	src := &fakeSource{res: &extract.Result{
		Text:       cleanStatementText,
		Method:     extract.MethodPDFOCR,
		Confidence: 0.55,
	}}
	svc, _ := newTestService(src, allFeatures())

	out, err := svc.IngestDocument(context.Background(), "card-1", "scan.pdf", "")
	require.NoError(t, err)

	assert.Equal(t, extract.MethodPDFOCR, out.Method)
	assert.Less(t, out.Statement.Confidence[statement.FieldNewBalance], 0.7,
		"OCR extraction drags field confidence down")
	assert.True(t, out.Statement.NeedsUserConfirm)
}

func TestIngestStructuredCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "activity.csv")
	csvBody := "Date,Description,Amount\n" +
		"10/05/2024,STORE PURCHASE,650.00\n" +
		"10/10/2024,CREDIT CARD PAYMENT,-500.00\n" +
		"10/15/2024,LATE FEE,10.00\n"
	require.NoError(t, os.WriteFile(path, []byte(csvBody), 0o644))

	src := &fakeSource{res: &extract.Result{
		Text:       "Date: 10/05/2024\nDescription: STORE PURCHASE\nAmount: 650.00\n",
		Method:     extract.MethodCSV,
		Confidence: 0.9,
	}}
	svc, repo := newTestService(src, allFeatures())
	ctx := context.Background()

	out, err := svc.IngestStructured(ctx, "card-1", path)
	require.NoError(t, err)
	assert.Equal(t, extract.MethodCSV, out.Method)

	txs, err := repo.Transactions(ctx, "card-1")
	require.NoError(t, err)
	require.Len(t, txs, 3)

	byDesc := make(map[string]ledger.Transaction)
	for _, tx := range txs {
		byDesc[tx.Description] = tx
	}
	assert.Equal(t, ledger.TypePurchase, byDesc["STORE PURCHASE"].Type)
	assert.Equal(t, ledger.TypePayment, byDesc["CREDIT CARD PAYMENT"].Type)
	assert.Equal(t, ledger.TypeFee, byDesc["LATE FEE"].Type)

	layer, err := repo.GetLayer(ctx, "card-1", truth.LayerStructured)
	require.NoError(t, err)
	assert.True(t, layer.Confirmed)

	// ledger-derived aggregates land in the transaction layer
	l0, err := repo.GetLayer(ctx, "card-1", truth.LayerTransactions)
	require.NoError(t, err)
	require.NotNil(t, l0.Statement.Purchases)
	assert.True(t, l0.Statement.Purchases.Equal(decimal.RequireFromString("650.00")))
	require.NotNil(t, l0.Statement.PaymentsCredits)
	assert.True(t, l0.Statement.PaymentsCredits.Equal(decimal.RequireFromString("500.00")))
	require.NotNil(t, l0.Statement.Fees)
	assert.True(t, l0.Statement.Fees.Equal(decimal.RequireFromString("10.00")))

	// no document supplied purchases, so the merge falls back to the ledger
	assert.Equal(t, truth.LayerTransactions, out.Truth.Provenance[statement.FieldPurchases].Layer)

	// re-importing the same file adds nothing
	_, err = svc.IngestStructured(ctx, "card-1", path)
	require.NoError(t, err)
	txs, err = repo.Transactions(ctx, "card-1")
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}

func TestEnterSummary(t *testing.T) {
	svc, repo := newTestService(nil, allFeatures())
	ctx := context.Background()

	st := statement.NewCanonical()
	st.SetAmount(statement.FieldNewBalance, decimal.RequireFromString("1074.43"))
	st.SetAmount(statement.FieldMinimumDue, decimal.RequireFromString("40.00"))

	out, err := svc.EnterSummary(ctx, "card-1", st)
	require.NoError(t, err)

	assert.Equal(t, truth.LayerSummary, out.Provenance[statement.FieldNewBalance].Layer)
	assert.InDelta(t, 0.95, out.Provenance[statement.FieldNewBalance].Confidence, 0.001)

	layer, err := repo.GetLayer(ctx, "card-1", truth.LayerSummary)
	require.NoError(t, err)
	assert.InDelta(t, 0.95, layer.Statement.Confidence[statement.FieldMinimumDue], 0.001)
}

func TestMergeAttachesReconciliation(t *testing.T) {
	svc, repo := newTestService(nil, allFeatures())
	ctx := context.Background()

	day := func(d int, m time.Month) time.Time {
		return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
	}
	txs := []ledger.Transaction{
		{ID: "t1", CardID: "card-1", Date: day(10, time.October), Description: "PAYMENT THANK YOU", Amount: decimal.RequireFromString("-500.00"), Type: ledger.TypePayment},
		{ID: "t2", CardID: "card-1", Date: day(15, time.October), Description: "GROCERY MART", Amount: decimal.RequireFromString("650.00"), Type: ledger.TypePurchase},
		{ID: "t3", CardID: "card-1", Date: day(1, time.November), Description: "ANNUAL FEE", Amount: decimal.RequireFromString("10.00"), Type: ledger.TypeFee},
		{ID: "t4", CardID: "card-1", Date: day(2, time.November), Description: "INTEREST CHARGE", Amount: decimal.RequireFromString("14.43"), Type: ledger.TypeInterest},
	}
	require.NoError(t, repo.PutTransactions(ctx, "card-1", txs))

	t.Run("consistent ledger", func(t *testing.T) {
		out, err := svc.IngestPaste(ctx, "card-1", cleanStatementText)
		require.NoError(t, err)

		rec := out.Truth.Reconciliation
		require.NotNil(t, rec)
		assert.True(t, rec.Consistent)
		assert.True(t, rec.LedgerBalance.Equal(decimal.RequireFromString("1074.43")))
		assert.Empty(t, rec.Warnings)
	})

	t.Run("drifted ledger", func(t *testing.T) {
		extra := ledger.Transaction{ID: "t5", CardID: "card-1", Date: day(3, time.November),
			Description: "COFFEE SHOP", Amount: decimal.RequireFromString("80.00"), Type: ledger.TypePurchase}
		require.NoError(t, repo.PutTransactions(ctx, "card-1", append(txs, extra)))

		out, err := svc.MergeCard(ctx, "card-1")
		require.NoError(t, err)

		rec := out.Reconciliation
		require.NotNil(t, rec)
		assert.False(t, rec.Consistent)
		assert.NotEmpty(t, rec.Warnings)
		assert.Contains(t, out.Warnings, rec.Warnings[0])
	})
}

func TestApplyConfirmedWithoutLayer(t *testing.T) {
	svc, _ := newTestService(nil, allFeatures())
	_, err := svc.ApplyConfirmed(context.Background(), "card-none", ConfirmationData{})
	assert.ErrorIs(t, err, truth.ErrNotFound)
}

func TestApplyConfirmedRejectsBadCorrection(t *testing.T) {
	src := &fakeSource{res: &extract.Result{
		Text:       cleanStatementText,
		Method:     extract.MethodPDFText,
		Confidence: 1.0,
	}}
	svc, _ := newTestService(src, allFeatures())
	ctx := context.Background()

	_, err := svc.IngestDocument(ctx, "card-1", "statement.pdf", "")
	require.NoError(t, err)

	_, err = svc.ApplyConfirmed(ctx, "card-1", ConfirmationData{
		Corrections: map[statement.Field]string{statement.FieldDueDate: "not a date"},
	})
	assert.Error(t, err)
}
