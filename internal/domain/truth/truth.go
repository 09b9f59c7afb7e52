// Package truth maintains the layered state of each card and merges the
// layers into a single convergent view. Layers hold potentially
// conflicting observations of the same billing cycle; the merge resolves
// them field by field under a strict precedence order.
package truth

import (
	"time"

	"github.com/FACorreiaa/card-truth/internal/domain/reconcile"
	"github.com/FACorreiaa/card-truth/internal/domain/statement"
)

// LayerName identifies one truth layer of a card.
type LayerName string

const (
	// LayerTransactions is the reconciled transaction ledger.
	LayerTransactions LayerName = "L0_tx"
	// LayerSummary holds user-entered summary numbers.
	LayerSummary LayerName = "L1_summary"
	// LayerStructured holds fields imported from structured files.
	LayerStructured LayerName = "L2_structured"
	// LayerPDF holds fields parsed from PDF, image or pasted text.
	LayerPDF LayerName = "L3_pdf"
	// LayerInferred holds facts derived from history rather than documents.
	LayerInferred LayerName = "Lx_inferred"
	// LayerDefaults tags values the merge filled with safe fallbacks.
	LayerDefaults LayerName = "defaults"
)

// DocumentLayers are the layers a merge draws fields from, highest
// precedence first. The transaction layer sits last: its aggregates are
// derived, not observed, so any document beats them.
var DocumentLayers = []LayerName{LayerStructured, LayerSummary, LayerPDF, LayerInferred, LayerTransactions}

// Layer is one stored observation of a card's state.
type Layer struct {
	Name       LayerName            `json:"name"`
	CardID     string               `json:"card_id"`
	Statement  *statement.Canonical `json:"statement"`
	Confirmed  bool                 `json:"confirmed"`
	CapturedAt time.Time            `json:"captured_at"`
	JobID      string               `json:"job_id,omitempty"`
}

// Provenance records which layer supplied a merged field and at what
// confidence.
type Provenance struct {
	Layer      LayerName `json:"layer"`
	Confidence float64   `json:"confidence"`
}

// Truth is the convergent view of one card after a merge. Reconciliation
// is filled by the ingestion service when the ledger covers the merged
// cycle; the merge itself never reads the ledger.
type Truth struct {
	CardID         string                         `json:"card_id"`
	Statement      statement.Canonical            `json:"statement"`
	Provenance     map[statement.Field]Provenance `json:"provenance"`
	BasedOn        LayerName                      `json:"based_on"`
	Confidence     float64                        `json:"confidence"`
	Defaulted      []statement.Field              `json:"defaulted,omitempty"`
	Warnings       []string                       `json:"warnings,omitempty"`
	Reconciliation *reconcile.Result              `json:"reconciliation,omitempty"`
	GeneratedAt    time.Time                      `json:"generated_at"`
}
