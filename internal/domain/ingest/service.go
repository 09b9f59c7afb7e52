// Package ingest orchestrates the full pipeline: extraction,
// normalization, field parsing, scoring, layer writes and the re-merge.
// Every ingestion path is feature-gated and fails fast when disabled;
// layers are written only after the whole parse succeeded, so a failed
// ingestion never leaves a partial layer behind.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/card-truth/internal/domain/confidence"
	"github.com/FACorreiaa/card-truth/internal/domain/extract"
	"github.com/FACorreiaa/card-truth/internal/domain/installments"
	"github.com/FACorreiaa/card-truth/internal/domain/issuer"
	"github.com/FACorreiaa/card-truth/internal/domain/ledger"
	"github.com/FACorreiaa/card-truth/internal/domain/normalize"
	"github.com/FACorreiaa/card-truth/internal/domain/reconcile"
	"github.com/FACorreiaa/card-truth/internal/domain/statement"
	"github.com/FACorreiaa/card-truth/internal/domain/truth"
	"github.com/FACorreiaa/card-truth/pkg/config"
	"github.com/FACorreiaa/card-truth/pkg/dates"
	"github.com/FACorreiaa/card-truth/pkg/money"
)

// ErrFeatureDisabled is returned when a disabled ingestion path is used.
var ErrFeatureDisabled = errors.New("ingest: feature disabled")

// confidence given to aggregates derived from the ledger window
const ledgerAggregateConfidence = 0.6

// TextSource extracts raw text from a file of any supported format.
type TextSource interface {
	Extract(ctx context.Context, path, mimeType string) (*extract.Result, error)
}

// FieldExtractor turns normalized text into a canonical statement.
type FieldExtractor interface {
	Extract(text string, det issuer.Detection) *statement.Canonical
}

// IssuerDetector identifies issuer and language from raw text.
type IssuerDetector interface {
	Detect(text string) issuer.Detection
}

// Service wires the pipeline stages together. All collaborators are
// injected; tests swap them freely.
type Service struct {
	repo       truth.Repository
	source     TextSource
	normalizer *normalize.Normalizer
	detector   IssuerDetector
	fields     FieldExtractor
	features   config.FeatureConfig
	merge      truth.MergeConfig
	log        *slog.Logger
	now        func() time.Time
}

// NewService builds the production pipeline.
func NewService(repo truth.Repository, source TextSource, det IssuerDetector, fx FieldExtractor,
	features config.FeatureConfig, merge config.MergeConfig, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:       repo,
		source:     source,
		normalizer: normalize.New(),
		detector:   det,
		fields:     fx,
		features:   features,
		merge: truth.MergeConfig{
			DefaultDueInDays:    merge.DefaultDueInDays,
			DefaultMinimumCents: merge.DefaultMinimumCents,
			DefaultCurrency:     merge.DefaultCurrency,
		},
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// IngestDocument runs the document pipeline for a PDF, image or plain
// text file and stores the result as the card's PDF layer. The layer is
// never written confirmed here; it stays untrusted until the user accepts
// it through ApplyConfirmed.
func (s *Service) IngestDocument(ctx context.Context, cardID, path, mimeType string) (*ParseResult, error) {
	if err := s.gateForPath(path); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	log := s.log.With("job_id", jobID, "card_id", cardID, "path", filepath.Base(path))

	res, err := s.source.Extract(ctx, path, mimeType)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	log.Info("text extracted", "method", res.Method, "confidence", res.Confidence, "chars", len(res.Text))

	return s.parseAndStore(ctx, cardID, jobID, truth.LayerPDF, res, log)
}

// IngestPaste runs the same pipeline over text the user pasted and stores
// the result as the summary layer.
func (s *Service) IngestPaste(ctx context.Context, cardID, text string) (*ParseResult, error) {
	if !s.features.PasteIngestion {
		return nil, fmt.Errorf("%w: paste ingestion", ErrFeatureDisabled)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("ingest: empty paste")
	}

	jobID := uuid.NewString()
	log := s.log.With("job_id", jobID, "card_id", cardID)

	res := &extract.Result{Text: text, Method: extract.MethodPlain, Confidence: 1.0}
	return s.parseAndStore(ctx, cardID, jobID, truth.LayerSummary, res, log)
}

// parseAndStore is the shared tail of the document pipeline. Nothing is
// persisted until the statement parsed and scored cleanly. The PDF layer
// is the only one stored unconfirmed: its trust comes solely from the
// user's explicit acceptance.
func (s *Service) parseAndStore(ctx context.Context, cardID, jobID string, name truth.LayerName, res *extract.Result, log *slog.Logger) (*ParseResult, error) {
	norm := s.normalizer.Apply(res.Text)
	det := s.detector.Detect(norm.Text)
	log.Info("issuer detected", "issuer", det.Issuer, "language", det.Language, "confidence", det.Confidence)

	st := s.fields.Extract(norm.Text, det)
	st.Installments = installments.ParseExplicit(norm.Text, st.Issuer, st.CardLast4)
	scaleConfidence(st, res.Confidence)

	report := confidence.Analyze(st)
	log.Info("statement scored",
		"overall", report.Overall, "critical_mean", report.CriticalMean,
		"needs_confirm", st.NeedsUserConfirm, "warnings", len(st.Warnings))

	layer := truth.Layer{
		Name:       name,
		CardID:     cardID,
		Statement:  st,
		Confirmed:  name != truth.LayerPDF,
		CapturedAt: s.now(),
		JobID:      jobID,
	}
	if err := s.repo.PutLayer(ctx, layer); err != nil {
		return nil, fmt.Errorf("store layer: %w", err)
	}

	if err := s.refreshLedgerViews(ctx, cardID, st.Issuer, st.CardLast4); err != nil {
		return nil, err
	}

	t, err := s.MergeCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	return &ParseResult{
		JobID:            jobID,
		CardID:           cardID,
		Method:           res.Method,
		Statement:        st,
		Report:           report,
		NormalizeApplied: norm.Applied,
		Truth:            t,
	}, nil
}

// IngestStructured parses a CSV, XLSX or OFX file into transactions plus
// any summary fields it carries, updating the ledger and the structured
// layer together.
func (s *Service) IngestStructured(ctx context.Context, cardID, path string) (*ParseResult, error) {
	if !s.features.StructuredIngestion {
		return nil, fmt.Errorf("%w: structured ingestion", ErrFeatureDisabled)
	}

	jobID := uuid.NewString()
	log := s.log.With("job_id", jobID, "card_id", cardID, "path", filepath.Base(path))

	res, err := s.source.Extract(ctx, path, "")
	if err != nil {
		return nil, fmt.Errorf("extract structured: %w", err)
	}

	data, err := s.structuredData(cardID, path, res)
	if err != nil {
		return nil, err
	}
	log.Info("structured file parsed", "method", res.Method,
		"transactions", len(data.Transactions), "fields", len(data.Statement.Confidence))

	report := confidence.Analyze(data.Statement)

	if len(data.Transactions) > 0 {
		existing, err := s.repo.Transactions(ctx, cardID)
		if err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		merged := mergeTransactions(existing, data.Transactions)
		if err := s.repo.PutTransactions(ctx, cardID, merged); err != nil {
			return nil, fmt.Errorf("store ledger: %w", err)
		}
	}

	layer := truth.Layer{
		Name:       truth.LayerStructured,
		CardID:     cardID,
		Statement:  data.Statement,
		Confirmed:  true,
		CapturedAt: s.now(),
		JobID:      jobID,
	}
	if err := s.repo.PutLayer(ctx, layer); err != nil {
		return nil, fmt.Errorf("store layer: %w", err)
	}

	if err := s.refreshLedgerViews(ctx, cardID, data.Statement.Issuer, data.Statement.CardLast4); err != nil {
		return nil, err
	}

	t, err := s.MergeCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	return &ParseResult{
		JobID:     jobID,
		CardID:    cardID,
		Method:    res.Method,
		Statement: data.Statement,
		Report:    report,
		Truth:     t,
	}, nil
}

// structuredData extracts both faces of a structured file: the summary
// fields from its label-value projection and the raw transaction rows.
func (s *Service) structuredData(cardID, path string, res *extract.Result) (*StructuredData, error) {
	det := s.detector.Detect(res.Text)
	st := s.fields.Extract(res.Text, det)

	var rows []extract.ParsedRow
	switch res.Method {
	case extract.MethodOFX:
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read structured file: %w", err)
		}
		rows = extract.ParseOFXTransactions(raw)
	case extract.MethodCSV:
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read structured file: %w", err)
		}
		rows, _, err = extract.ParseRows(strings.NewReader(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("parse rows: %w", err)
		}
	case extract.MethodXLSX:
		var err error
		rows, err = extract.ParseXLSXRows(path)
		if err != nil {
			return nil, fmt.Errorf("parse rows: %w", err)
		}
	}

	return &StructuredData{
		Statement:    st,
		Transactions: transactionsFromRows(cardID, rows),
	}, nil
}

// EnterSummary stores user-entered summary numbers as the summary layer.
// Values the user typed are trusted just below confirmed documents.
func (s *Service) EnterSummary(ctx context.Context, cardID string, st *statement.Canonical) (*truth.Truth, error) {
	for _, f := range []statement.Field{
		statement.FieldIssuer, statement.FieldCardLast4, statement.FieldCurrency,
		statement.FieldPeriodStart, statement.FieldPeriodEnd, statement.FieldClosingDay,
		statement.FieldDueDate, statement.FieldPreviousBalance, statement.FieldNewBalance,
		statement.FieldMinimumDue, statement.FieldPaymentsCredits, statement.FieldPurchases,
		statement.FieldCashAdvances, statement.FieldFees, statement.FieldInterest,
		statement.FieldCreditLimit, statement.FieldAvailableCredit,
		statement.FieldPurchaseAPR, statement.FieldCashAPR,
	} {
		if st.Has(f) {
			st.SetConfidence(f, 0.95)
		}
	}

	layer := truth.Layer{
		Name:       truth.LayerSummary,
		CardID:     cardID,
		Statement:  st,
		Confirmed:  true,
		CapturedAt: s.now(),
	}
	if err := s.repo.PutLayer(ctx, layer); err != nil {
		return nil, fmt.Errorf("store layer: %w", err)
	}
	return s.MergeCard(ctx, cardID)
}

// ApplyConfirmed records the user's acceptance of a parsed document:
// optional corrections are applied at full confidence, the PDF layer is
// marked confirmed and the card re-merged. Until this runs, the PDF
// layer contributes nothing to the merge.
func (s *Service) ApplyConfirmed(ctx context.Context, cardID string, data ConfirmationData) (*truth.Truth, error) {
	layer, err := s.repo.GetLayer(ctx, cardID, truth.LayerPDF)
	if err != nil {
		return nil, fmt.Errorf("load pdf layer: %w", err)
	}

	for f, raw := range data.Corrections {
		if err := ApplyValue(layer.Statement, f, raw); err != nil {
			return nil, err
		}
	}

	// user has vouched for the values; clear the flag and rescore
	layer.Statement.Warnings = nil
	layer.Statement.NeedsUserConfirm = false
	confidence.Analyze(layer.Statement)
	layer.Confirmed = true
	layer.CapturedAt = s.now()

	if err := s.repo.PutLayer(ctx, *layer); err != nil {
		return nil, fmt.Errorf("store layer: %w", err)
	}

	s.log.Info("parse confirmed", "card_id", cardID, "corrections", len(data.Corrections))
	return s.MergeCard(ctx, cardID)
}

// MergeCard re-merges a card's layers and persists the convergent truth.
func (s *Service) MergeCard(ctx context.Context, cardID string) (*truth.Truth, error) {
	layers, err := s.repo.Layers(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("load layers: %w", err)
	}

	cfg := s.merge
	cfg.Now = s.now
	t := truth.Merge(cardID, layers, cfg)

	if err := s.reconcileTruth(ctx, t); err != nil {
		return nil, err
	}

	if err := s.repo.PutTruth(ctx, t); err != nil {
		return nil, fmt.Errorf("store truth: %w", err)
	}
	s.log.Info("card merged", "card_id", cardID,
		"based_on", t.BasedOn, "confidence", t.Confidence, "defaulted", len(t.Defaulted))
	return t, nil
}

// reconcileTruth rolls the ledger across the merged cycle and attaches
// the drift report. It needs the previous balance as an anchor and the
// cycle window; without them the snapshot stays unreconciled.
func (s *Service) reconcileTruth(ctx context.Context, t *truth.Truth) error {
	st := &t.Statement
	if st.PreviousBalance == nil || st.PeriodStart == nil || st.PeriodEnd == nil {
		return nil
	}
	txs, err := s.repo.Transactions(ctx, t.CardID)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if len(txs) == 0 {
		return nil
	}

	res := reconcile.Reconcile(*st.PreviousBalance, txs, *st.PeriodStart, *st.PeriodEnd, st.NewBalance)
	t.Reconciliation = &res
	t.Warnings = append(t.Warnings, res.Warnings...)
	return nil
}

// refreshLedgerViews rebuilds the two ledger-derived layers: the
// transaction layer's per-type aggregates and, when enabled, the
// inferred installment plans.
func (s *Service) refreshLedgerViews(ctx context.Context, cardID, issuerName, last4 string) error {
	txs, err := s.repo.Transactions(ctx, cardID)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if len(txs) == 0 {
		return nil
	}

	layer := truth.Layer{
		Name:       truth.LayerTransactions,
		CardID:     cardID,
		Statement:  ledgerStatement(txs),
		Confirmed:  true,
		CapturedAt: s.now(),
	}
	if err := s.repo.PutLayer(ctx, layer); err != nil {
		return fmt.Errorf("store transaction layer: %w", err)
	}

	if !s.features.InstallmentInfer {
		return nil
	}
	plans := installments.InferFromLedger(txs, issuerName, last4)
	if len(plans) == 0 {
		return nil
	}

	st := statement.NewCanonical()
	st.Installments = plans
	inferred := truth.Layer{
		Name:       truth.LayerInferred,
		CardID:     cardID,
		Statement:  st,
		CapturedAt: s.now(),
	}
	if err := s.repo.PutLayer(ctx, inferred); err != nil {
		return fmt.Errorf("store inferred layer: %w", err)
	}
	return nil
}

// ledgerStatement projects the most recent cycle-sized window of the
// ledger onto the aggregate statement fields.
func ledgerStatement(txs []ledger.Transaction) *statement.Canonical {
	latest := txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.After(latest) {
			latest = tx.Date
		}
	}
	window := ledger.InWindow(txs, latest.AddDate(0, 0, -31), latest)

	st := statement.NewCanonical()
	set := func(f statement.Field, v decimal.Decimal) {
		if v.IsZero() {
			return
		}
		st.SetAmount(f, v)
		st.SetConfidence(f, ledgerAggregateConfidence)
	}
	set(statement.FieldPaymentsCredits, ledger.SumByType(window, ledger.TypePayment, ledger.TypeCredit).Abs())
	set(statement.FieldPurchases, ledger.SumByType(window, ledger.TypePurchase, ledger.TypeInstallment))
	set(statement.FieldCashAdvances, ledger.SumByType(window, ledger.TypeCashAdvance))
	set(statement.FieldFees, ledger.SumByType(window, ledger.TypeFee))
	set(statement.FieldInterest, ledger.SumByType(window, ledger.TypeInterest))
	return st
}

func (s *Service) gateForPath(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		if !s.features.PDFIngestion {
			return fmt.Errorf("%w: pdf ingestion", ErrFeatureDisabled)
		}
	case ".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp":
		if !s.features.ImageOCR {
			return fmt.Errorf("%w: image ocr", ErrFeatureDisabled)
		}
	default:
		if !s.features.PasteIngestion {
			return fmt.Errorf("%w: text ingestion", ErrFeatureDisabled)
		}
	}
	return nil
}

// scaleConfidence folds the extraction method's own confidence into every
// field confidence, so OCR-sourced fields never score like native text.
func scaleConfidence(st *statement.Canonical, factor float64) {
	if factor >= 1 || factor <= 0 {
		return
	}
	for f, conf := range st.Confidence {
		st.SetConfidence(f, conf*factor)
	}
	for i := range st.Installments {
		st.Installments[i].Confidence *= factor
	}
}

// transactionsFromRows converts parsed rows into typed ledger entries.
func transactionsFromRows(cardID string, rows []extract.ParsedRow) []ledger.Transaction {
	out := make([]ledger.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, ledger.Transaction{
			ID:          uuid.NewString(),
			CardID:      cardID,
			Date:        row.Date,
			Description: row.Description,
			Amount:      row.Amount,
			Type:        classifyTransaction(row),
		})
	}
	return out
}

func classifyTransaction(row extract.ParsedRow) ledger.Type {
	desc := strings.ToLower(row.Description)
	if row.Amount.Sign() < 0 {
		if strings.Contains(desc, "payment") || strings.Contains(desc, "pago") {
			return ledger.TypePayment
		}
		return ledger.TypeCredit
	}
	switch {
	case strings.Contains(desc, "fee") || strings.Contains(desc, "comisi"):
		return ledger.TypeFee
	case strings.Contains(desc, "interest") || strings.Contains(desc, "interes"):
		return ledger.TypeInterest
	case strings.Contains(desc, "msi") || strings.Contains(desc, "installment"):
		return ledger.TypeInstallment
	default:
		return ledger.TypePurchase
	}
}

// mergeTransactions unions existing and incoming entries, deduplicating
// on date, magnitude and description so re-importing a file is idempotent.
func mergeTransactions(existing, incoming []ledger.Transaction) []ledger.Transaction {
	key := func(tx ledger.Transaction) string {
		return tx.Date.Format("2006-01-02") + "|" + tx.Amount.StringFixed(2) + "|" + strings.ToLower(tx.Description)
	}
	seen := make(map[string]bool, len(existing))
	out := append([]ledger.Transaction(nil), existing...)
	for _, tx := range existing {
		seen[key(tx)] = true
	}
	for _, tx := range incoming {
		if !seen[key(tx)] {
			seen[key(tx)] = true
			out = append(out, tx)
		}
	}
	return out
}

// ApplyValue writes one user-supplied raw value into the statement at
// full confidence, parsing it according to the field's kind.
func ApplyValue(st *statement.Canonical, f statement.Field, raw string) error {
	raw = strings.TrimSpace(raw)
	switch f {
	case statement.FieldIssuer:
		st.Issuer = raw
	case statement.FieldCardLast4:
		st.CardLast4 = raw
	case statement.FieldCurrency:
		st.Currency = strings.ToUpper(raw)
	case statement.FieldDueDate, statement.FieldPeriodStart, statement.FieldPeriodEnd:
		t, ok := dates.Parse(raw, false)
		if !ok {
			return fmt.Errorf("correction for %s: unparseable date %q", f, raw)
		}
		switch f {
		case statement.FieldDueDate:
			st.DueDate = &t
		case statement.FieldPeriodStart:
			st.PeriodStart = &t
		case statement.FieldPeriodEnd:
			st.PeriodEnd = &t
		}
	case statement.FieldClosingDay:
		d := 0
		if _, err := fmt.Sscanf(raw, "%d", &d); err != nil || d < 1 || d > 28 {
			return fmt.Errorf("correction for %s: invalid day %q", f, raw)
		}
		st.ClosingDay = d
	default:
		v := money.ParseAmount(raw)
		if v == nil {
			return fmt.Errorf("correction for %s: unparseable amount %q", f, raw)
		}
		st.SetAmount(f, *v)
		if !st.Has(f) {
			return fmt.Errorf("unknown field %q", f)
		}
	}
	st.SetConfidence(f, 1.0)
	return nil
}
