// Command cardtruth ingests card statements from files or pasted text,
// maintains per-card truth layers in a local store and prints the merged
// view.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/card-truth/internal/domain/extract"
	"github.com/FACorreiaa/card-truth/internal/domain/fields"
	"github.com/FACorreiaa/card-truth/internal/domain/ingest"
	"github.com/FACorreiaa/card-truth/internal/domain/issuer"
	"github.com/FACorreiaa/card-truth/internal/domain/statement"
	"github.com/FACorreiaa/card-truth/internal/domain/truth"
	"github.com/FACorreiaa/card-truth/pkg/config"
	"github.com/FACorreiaa/card-truth/pkg/money"
	"github.com/FACorreiaa/card-truth/pkg/schedule"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	log     *slog.Logger
	repo    truth.Repository
	service *ingest.Service
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	rootFlags := ff.NewFlagSet("cardtruth")
	dbPath := rootFlags.StringLong("db", cfg.Store.Path, "path to the truth store")

	a := &app{cfg: cfg, log: log}

	card := func(fs *ff.FlagSet) *string {
		return fs.StringLong("card", "default", "card identifier")
	}

	ingestFlags := ff.NewFlagSet("ingest").SetParent(rootFlags)
	ingestCard := card(ingestFlags)
	ingestMIME := ingestFlags.StringLong("mime", "", "declared MIME type, used when the extension is ambiguous")

	pasteFlags := ff.NewFlagSet("paste").SetParent(rootFlags)
	pasteCard := card(pasteFlags)

	confirmFlags := ff.NewFlagSet("confirm").SetParent(rootFlags)
	confirmCard := card(confirmFlags)

	summaryFlags := ff.NewFlagSet("summary").SetParent(rootFlags)
	summaryCard := card(summaryFlags)

	mergeFlags := ff.NewFlagSet("merge").SetParent(rootFlags)
	mergeCard := card(mergeFlags)

	showFlags := ff.NewFlagSet("show").SetParent(rootFlags)
	showCard := card(showFlags)

	watchFlags := ff.NewFlagSet("watch").SetParent(rootFlags)
	watchSpec := watchFlags.StringLong("spec", "0 2 * * *", "cron spec for the re-merge pass")

	root := &ff.Command{
		Name:      "cardtruth",
		Usage:     "cardtruth <subcommand> [flags]",
		ShortHelp: "layered credit card statement truth",
		Flags:     rootFlags,
		Subcommands: []*ff.Command{
			{
				Name:      "ingest",
				Usage:     "cardtruth ingest --card ID <file>",
				ShortHelp: "ingest a statement file (pdf, image, csv, xlsx, ofx, txt)",
				Flags:     ingestFlags,
				Exec: func(ctx context.Context, args []string) error {
					if len(args) != 1 {
						return errors.New("ingest expects exactly one file")
					}
					return a.cmdIngest(ctx, *ingestCard, args[0], *ingestMIME)
				},
			},
			{
				Name:      "paste",
				Usage:     "cardtruth paste --card ID < statement.txt",
				ShortHelp: "ingest statement text from stdin",
				Flags:     pasteFlags,
				Exec: func(ctx context.Context, _ []string) error {
					return a.cmdPaste(ctx, *pasteCard)
				},
			},
			{
				Name:      "confirm",
				Usage:     "cardtruth confirm --card ID [field=value ...]",
				ShortHelp: "confirm a flagged parse, optionally correcting fields",
				Flags:     confirmFlags,
				Exec: func(ctx context.Context, args []string) error {
					return a.cmdConfirm(ctx, *confirmCard, args)
				},
			},
			{
				Name:      "summary",
				Usage:     "cardtruth summary --card ID field=value [field=value ...]",
				ShortHelp: "enter statement summary numbers by hand",
				Flags:     summaryFlags,
				Exec: func(ctx context.Context, args []string) error {
					return a.cmdSummary(ctx, *summaryCard, args)
				},
			},
			{
				Name:      "merge",
				Usage:     "cardtruth merge --card ID",
				ShortHelp: "re-merge a card's layers",
				Flags:     mergeFlags,
				Exec: func(ctx context.Context, _ []string) error {
					return a.cmdMerge(ctx, *mergeCard)
				},
			},
			{
				Name:      "show",
				Usage:     "cardtruth show --card ID",
				ShortHelp: "print a card's merged truth",
				Flags:     showFlags,
				Exec: func(ctx context.Context, _ []string) error {
					return a.cmdShow(ctx, *showCard)
				},
			},
			{
				Name:      "cards",
				Usage:     "cardtruth cards",
				ShortHelp: "list known cards",
				Flags:     ff.NewFlagSet("cards").SetParent(rootFlags),
				Exec: func(ctx context.Context, _ []string) error {
					return a.cmdCards(ctx)
				},
			},
			{
				Name:      "watch",
				Usage:     "cardtruth watch [--spec CRON]",
				ShortHelp: "run the scheduled re-merge pass until interrupted",
				Flags:     watchFlags,
				Exec: func(ctx context.Context, _ []string) error {
					return a.cmdWatch(ctx, *watchSpec)
				},
			},
		},
	}

	if err := root.Parse(args, ff.WithEnvVarPrefix("CARD_TRUTH")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root))
		return err
	}

	repo, err := truth.OpenBolt(*dbPath)
	if err != nil {
		return err
	}
	defer repo.Close()
	a.repo = repo
	a.service = newService(cfg, repo, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.Run(ctx); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root))
			return nil
		}
		return err
	}
	return nil
}

func newService(cfg *config.Config, repo truth.Repository, log *slog.Logger) *ingest.Service {
	ocr := extract.NewOCRExtractor(cfg.OCR.TesseractBin, cfg.OCR.PdftoppmBin, cfg.OCR.Languages, cfg.OCR.DPI)
	dispatcher := extract.NewDispatcher(
		extract.NewPDFTextExtractor(),
		ocr,
		extract.NewCSVExtractor(),
		extract.NewXLSXExtractor(),
		extract.NewOFXExtractor(),
		extract.NewPlainTextExtractor(),
	)
	return ingest.NewService(repo, dispatcher, issuer.New(), fields.New(), cfg.Features, cfg.Merge, log)
}

func (a *app) cmdIngest(ctx context.Context, cardID, path, mimeType string) error {
	var (
		res *ingest.ParseResult
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".xlsx", ".xls", ".ofx", ".qfx":
		res, err = a.service.IngestStructured(ctx, cardID, path)
	default:
		res, err = a.service.IngestDocument(ctx, cardID, path, mimeType)
	}
	if err != nil {
		return err
	}
	return printJSON(res)
}

func (a *app) cmdPaste(ctx context.Context, cardID string) error {
	text, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	res, err := a.service.IngestPaste(ctx, cardID, string(text))
	if err != nil {
		return err
	}
	return printJSON(res)
}

func (a *app) cmdConfirm(ctx context.Context, cardID string, args []string) error {
	corrections, err := parseFieldArgs(args)
	if err != nil {
		return err
	}
	t, err := a.service.ApplyConfirmed(ctx, cardID, ingest.ConfirmationData{Corrections: corrections})
	if err != nil {
		return err
	}
	return printJSON(t)
}

func (a *app) cmdSummary(ctx context.Context, cardID string, args []string) error {
	if len(args) == 0 {
		return errors.New("summary expects field=value arguments")
	}
	values, err := parseFieldArgs(args)
	if err != nil {
		return err
	}

	st := statement.NewCanonical()
	for f, raw := range values {
		if err := ingest.ApplyValue(st, f, raw); err != nil {
			return err
		}
	}
	t, err := a.service.EnterSummary(ctx, cardID, st)
	if err != nil {
		return err
	}
	return printJSON(t)
}

func (a *app) cmdMerge(ctx context.Context, cardID string) error {
	t, err := a.service.MergeCard(ctx, cardID)
	if err != nil {
		return err
	}
	return printJSON(t)
}

func (a *app) cmdShow(ctx context.Context, cardID string) error {
	t, err := a.repo.GetTruth(ctx, cardID)
	if err != nil {
		return err
	}
	printSnapshotHeader(t)
	return printJSON(t)
}

// printSnapshotHeader prints the headline numbers in the card's currency
// before the full JSON dump.
func printSnapshotHeader(t *truth.Truth) {
	cur := t.Statement.Currency
	if cur == "" {
		cur = money.USD
	}
	display := func(d *decimal.Decimal) string {
		if d == nil {
			return "-"
		}
		return money.NewFromDecimal(*d, cur).Display()
	}
	fmt.Printf("card %s  balance %s  minimum due %s", t.CardID,
		display(t.Statement.NewBalance), display(t.Statement.MinimumDue))
	if t.Statement.DueDate != nil {
		fmt.Printf("  due %s", t.Statement.DueDate.Format("2006-01-02"))
	}
	fmt.Printf("  confidence %.2f  (source %s)\n", t.Confidence, t.BasedOn)
}

func (a *app) cmdCards(ctx context.Context) error {
	cards, err := a.repo.Cards(ctx)
	if err != nil {
		return err
	}
	for _, id := range cards {
		fmt.Println(id)
	}
	return nil
}

func (a *app) cmdWatch(ctx context.Context, spec string) error {
	s := schedule.NewScheduler(a.repo, a.service, spec, a.log)
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	<-s.Stop().Done()
	return nil
}

// parseFieldArgs turns "new_balance=1074.43" style arguments into a
// correction map keyed by canonical field names.
func parseFieldArgs(args []string) (map[statement.Field]string, error) {
	out := make(map[statement.Field]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		out[statement.Field(name)] = value
	}
	return out, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
