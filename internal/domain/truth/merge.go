package truth

import (
	"fmt"
	"time"

	"github.com/FACorreiaa/card-truth/internal/domain/statement"
	"github.com/FACorreiaa/card-truth/pkg/money"
)

// Per-layer confidence floors a field must clear before that layer may
// supply it. The PDF layer additionally requires user confirmation.
const (
	structuredFloor = 0.9
	summaryFloor    = 0.8
	pdfFloor        = 0.7

	defaultConfidence = 0.3
)

// MergeConfig carries the fallback values the merge uses when no layer
// can supply a critical field.
type MergeConfig struct {
	DefaultDueInDays    int
	DefaultMinimumCents int64
	DefaultCurrency     string
	Now                 func() time.Time
}

func (c MergeConfig) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// Merge folds a card's layers into one convergent truth. For every field
// the layers are consulted in precedence order and the first eligible
// value wins; eligibility is the layer's confidence floor, plus the
// confirmed flag for the PDF layer. Fields no layer can fill stay absent,
// except due date and minimum due which receive conservative defaults.
// Merge never mutates its inputs.
func Merge(cardID string, layers map[LayerName]*Layer, cfg MergeConfig) *Truth {
	out := &Truth{
		CardID:      cardID,
		Statement:   *statement.NewCanonical(),
		Provenance:  make(map[statement.Field]Provenance),
		GeneratedAt: cfg.now(),
	}

	allFields := []statement.Field{
		statement.FieldIssuer, statement.FieldCardLast4, statement.FieldCurrency,
		statement.FieldPeriodStart, statement.FieldPeriodEnd, statement.FieldClosingDay,
		statement.FieldDueDate,
		statement.FieldPreviousBalance, statement.FieldNewBalance, statement.FieldMinimumDue,
		statement.FieldPaymentsCredits, statement.FieldPurchases, statement.FieldCashAdvances,
		statement.FieldFees, statement.FieldInterest,
		statement.FieldCreditLimit, statement.FieldAvailableCredit,
		statement.FieldPurchaseAPR, statement.FieldCashAPR,
	}

	for _, f := range allFields {
		layer, conf, ok := pickLayer(layers, f)
		if !ok {
			continue
		}
		copyField(&out.Statement, layers[layer].Statement, f)
		out.Statement.SetConfidence(f, conf)
		out.Provenance[f] = Provenance{Layer: layer, Confidence: conf}
	}

	applyDefaults(out, cfg)
	mergeInstallments(out, layers)
	collectWarnings(out, layers)

	out.BasedOn = dominantLayer(out.Provenance)
	out.Confidence = weightedConfidence(out.Provenance)
	return out
}

// pickLayer walks the precedence order and returns the first layer whose
// value for the field is eligible.
func pickLayer(layers map[LayerName]*Layer, f statement.Field) (LayerName, float64, bool) {
	for _, name := range DocumentLayers {
		l := layers[name]
		if l == nil || l.Statement == nil || !l.Statement.Has(f) {
			continue
		}
		conf := l.Statement.Confidence[f]
		switch name {
		case LayerStructured:
			if conf < structuredFloor {
				continue
			}
		case LayerSummary:
			if conf < summaryFloor {
				continue
			}
		case LayerPDF:
			if !l.Confirmed || conf < pdfFloor {
				continue
			}
		case LayerInferred, LayerTransactions:
			// last resort, any confidence
		}
		return name, conf, true
	}
	return "", 0, false
}

func copyField(dst, src *statement.Canonical, f statement.Field) {
	switch f {
	case statement.FieldIssuer:
		dst.Issuer = src.Issuer
	case statement.FieldCardLast4:
		dst.CardLast4 = src.CardLast4
	case statement.FieldCurrency:
		dst.Currency = src.Currency
	case statement.FieldPeriodStart:
		t := *src.PeriodStart
		dst.PeriodStart = &t
	case statement.FieldPeriodEnd:
		t := *src.PeriodEnd
		dst.PeriodEnd = &t
	case statement.FieldClosingDay:
		dst.ClosingDay = src.ClosingDay
	case statement.FieldDueDate:
		t := *src.DueDate
		dst.DueDate = &t
	default:
		if v := src.AmountFor(f); v != nil {
			dst.SetAmount(f, *v)
		}
	}
}

// applyDefaults fills due date and minimum due when nothing supplied them,
// so downstream scheduling always has something to work with.
func applyDefaults(out *Truth, cfg MergeConfig) {
	// currency falls back silently, it is presentation not billing state
	if out.Statement.Currency == "" && cfg.DefaultCurrency != "" {
		out.Statement.Currency = cfg.DefaultCurrency
	}
	if out.Statement.DueDate == nil {
		days := cfg.DefaultDueInDays
		if days <= 0 {
			days = 25
		}
		due := cfg.now().AddDate(0, 0, days)
		due = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
		out.Statement.DueDate = &due
		out.markDefault(statement.FieldDueDate)
	}
	if out.Statement.MinimumDue == nil {
		cents := cfg.DefaultMinimumCents
		if cents <= 0 {
			cents = 2500
		}
		cur := out.Statement.Currency
		if cur == "" {
			cur = money.USD
		}
		min := money.New(cents, cur).ToDecimal()
		out.Statement.MinimumDue = &min
		out.markDefault(statement.FieldMinimumDue)
	}
}

func (t *Truth) markDefault(f statement.Field) {
	t.Statement.SetConfidence(f, defaultConfidence)
	t.Provenance[f] = Provenance{Layer: LayerDefaults, Confidence: defaultConfidence}
	t.Defaulted = append(t.Defaulted, f)
	t.Warnings = append(t.Warnings, fmt.Sprintf("no source for %s, using default", f))
}

// mergeInstallments unions plans across layers by plan ID in precedence
// order. Inferred plans are dropped when an explicit plan already covers
// them; surviving inferred plans get a double-count warning because their
// charges may already sit inside the purchases total.
func mergeInstallments(out *Truth, layers map[LayerName]*Layer) {
	seen := make(map[string]bool)
	explicitDesc := make(map[string]bool)
	inferredKept := 0

	for _, name := range DocumentLayers {
		l := layers[name]
		if l == nil || l.Statement == nil {
			continue
		}
		if name == LayerPDF && !l.Confirmed {
			continue
		}
		for _, p := range l.Statement.Installments {
			if seen[p.ID] {
				continue
			}
			if !p.Explicit() && explicitDesc[p.Descriptor] {
				continue
			}
			seen[p.ID] = true
			if p.Explicit() {
				explicitDesc[p.Descriptor] = true
			} else {
				inferredKept++
			}
			out.Statement.Installments = append(out.Statement.Installments, p)
		}
	}

	if inferredKept > 0 && out.Statement.Purchases != nil {
		out.Warnings = append(out.Warnings,
			"inferred installment plans may duplicate charges already counted in purchases")
	}
}

// collectWarnings carries forward the warnings of every layer that
// contributed at least one field.
func collectWarnings(out *Truth, layers map[LayerName]*Layer) {
	contributed := make(map[LayerName]bool)
	for _, p := range out.Provenance {
		contributed[p.Layer] = true
	}

	seen := make(map[string]bool, len(out.Warnings))
	for _, w := range out.Warnings {
		seen[w] = true
	}
	for _, name := range DocumentLayers {
		if !contributed[name] || layers[name] == nil || layers[name].Statement == nil {
			continue
		}
		for _, w := range layers[name].Statement.Warnings {
			if !seen[w] {
				seen[w] = true
				out.Warnings = append(out.Warnings, w)
			}
		}
	}
}

// dominantLayer is the layer that supplied the most critical fields,
// ties resolved by precedence order.
func dominantLayer(prov map[statement.Field]Provenance) LayerName {
	counts := make(map[LayerName]int)
	for _, f := range statement.CriticalFields {
		if p, ok := prov[f]; ok {
			counts[p.Layer]++
		}
	}
	best := LayerDefaults
	bestCount := -1
	order := append([]LayerName{}, DocumentLayers...)
	order = append(order, LayerDefaults)
	for _, name := range order {
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}
	return best
}

// weightedConfidence averages the chosen provenance confidences with the
// same critical and important weighting extraction scoring uses.
func weightedConfidence(prov map[statement.Field]Provenance) float64 {
	weight := func(f statement.Field) float64 {
		for _, c := range statement.CriticalFields {
			if f == c {
				return 3
			}
		}
		for _, i := range statement.ImportantFields {
			if f == i {
				return 2
			}
		}
		return 1
	}

	var sum, weights float64
	for f, p := range prov {
		w := weight(f)
		sum += p.Confidence * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}
