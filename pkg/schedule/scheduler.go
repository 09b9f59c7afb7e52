// Package schedule provides scheduled background jobs using robfig/cron.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/card-truth/internal/domain/ingest"
	"github.com/FACorreiaa/card-truth/internal/domain/truth"
)

// Scheduler re-merges every known card on a fixed cadence, so defaulted
// due dates roll forward and freshly inferred plans surface without a
// manual merge.
type Scheduler struct {
	cron    *cron.Cron
	repo    truth.Repository
	service *ingest.Service
	spec    string
	logger  *slog.Logger
}

// NewScheduler creates the scheduler with a standard 5-field cron spec.
func NewScheduler(repo truth.Repository, service *ingest.Service, spec string, logger *slog.Logger) *Scheduler {
	if spec == "" {
		spec = "0 2 * * *"
	}
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:    c,
		repo:    repo,
		service: service,
		spec:    spec,
		logger:  logger,
	}
}

// Start registers the merge job and begins the schedule.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.mergeAllCards); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.String("spec", s.spec),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops scheduled jobs; the returned context is done once
// running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers the merge pass outside the schedule.
func (s *Scheduler) RunNow() {
	go s.mergeAllCards()
}

func (s *Scheduler) mergeAllCards() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cards, err := s.repo.Cards(ctx)
	if err != nil {
		s.logger.Error("failed to list cards", slog.Any("error", err))
		return
	}

	merged := 0
	for _, cardID := range cards {
		if _, err := s.service.MergeCard(ctx, cardID); err != nil {
			s.logger.Error("merge failed", slog.String("card_id", cardID), slog.Any("error", err))
			continue
		}
		merged++
	}
	s.logger.Info("scheduled merge pass finished",
		slog.Int("cards", len(cards)), slog.Int("merged", merged))
}
