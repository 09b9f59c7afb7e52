package ingest

import (
	"github.com/FACorreiaa/card-truth/internal/domain/confidence"
	"github.com/FACorreiaa/card-truth/internal/domain/extract"
	"github.com/FACorreiaa/card-truth/internal/domain/ledger"
	"github.com/FACorreiaa/card-truth/internal/domain/statement"
	"github.com/FACorreiaa/card-truth/internal/domain/truth"
)

// ParseResult is what one ingestion returns to the caller: the parsed
// statement, its quality report and the truth view after re-merging.
type ParseResult struct {
	JobID            string               `json:"job_id"`
	CardID           string               `json:"card_id"`
	Method           extract.Method       `json:"method"`
	Statement        *statement.Canonical `json:"statement"`
	Report           confidence.Report    `json:"report"`
	NormalizeApplied []string             `json:"normalize_applied,omitempty"`
	Truth            *truth.Truth         `json:"truth"`
}

// StructuredData is the outcome of parsing a structured file: the
// summary fields it carried plus the individual transactions.
type StructuredData struct {
	Statement    *statement.Canonical `json:"statement"`
	Transactions []ledger.Transaction `json:"transactions"`
}

// ConfirmationData carries the user's verdict on a flagged parse:
// per-field corrections as raw strings, parsed according to the field.
// An empty map confirms the parse as extracted.
type ConfirmationData struct {
	Corrections map[statement.Field]string `json:"corrections,omitempty"`
}
