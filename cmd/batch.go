package main

import (
	"context"
	"errors"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/enrich-cli/internal/enrich"
	"github.com/sells-group/enrich-cli/internal/model"
)

var (
	batchLimit  int
	batchStatus string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch enrich people with a trigger status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnrich(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		status := batchStatus
		if status == "" {
			status = cfg.Enrich.TriggerStatus
		}

		people, err := env.Gateway.ListPeopleByStatus(ctx, status)
		if err != nil {
			return eris.Wrapf(err, "list people with status %q", status)
		}

		sum, err := processBatch(ctx, people, batchLimit, cfg.Enrich.MaxConcurrentPeople, env.Enricher.EnrichPerson)
		if err != nil {
			return err
		}
		if sum.Failed > 0 {
			return eris.Errorf("batch: %d of %d people failed", sum.Failed, sum.Total())
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 100, "max number of people to process")
	batchCmd.Flags().StringVar(&batchStatus, "status", "", "people status to select (default from config)")
	rootCmd.AddCommand(batchCmd)
}

// enrichFunc is the callback signature for running enrichment on a person.
type enrichFunc func(ctx context.Context, p model.Person) (*enrich.Result, error)

// batchSummary counts per-person outcomes of a batch.
type batchSummary struct {
	Succeeded int64
	Skipped   int64
	Busy      int64
	Failed    int64
}

// Total returns the number of people processed.
func (s batchSummary) Total() int64 {
	return s.Succeeded + s.Skipped + s.Busy + s.Failed
}

// processBatch applies limit, then enriches people concurrently. A failed
// person never aborts the batch.
func processBatch(ctx context.Context, people []model.Person, limit, concurrency int, run enrichFunc) (batchSummary, error) {
	if len(people) == 0 {
		zap.L().Info("no people to enrich")
		return batchSummary{}, nil
	}

	if limit > 0 && len(people) > limit {
		people = people[:limit]
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("people", len(people)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, skipped, busy, failed atomic.Int64

	for _, p := range people {
		g.Go(func() error {
			log := zap.L().With(zap.String("person_id", p.ID), zap.String("person", p.DisplayName()))

			result, err := run(gctx, p)
			switch {
			case errors.Is(err, enrich.ErrAttemptInProgress):
				busy.Add(1)
				log.Info("attempt already in progress")
				return nil
			case err != nil:
				failed.Add(1)
				log.Error("enrichment failed", zap.Error(err))
				return nil
			case result.Skipped:
				skipped.Add(1)
				log.Info("enrichment skipped", zap.String("reason", result.SkipReason))
				return nil
			case !result.Success():
				failed.Add(1)
				var errs []string
				if result.Record != nil {
					errs = result.Record.Errors
				}
				log.Warn("enrichment produced no data", zap.Strings("errors", errs))
				return nil
			}

			succeeded.Add(1)
			log.Info("enrichment complete",
				zap.String("status", string(result.Record.Status)),
				zap.Int("completeness", result.Record.CompletenessScore),
				zap.Bool("storage_success", result.StorageSuccess),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return batchSummary{}, eris.Wrap(err, "batch processing")
	}

	sum := batchSummary{
		Succeeded: succeeded.Load(),
		Skipped:   skipped.Load(),
		Busy:      busy.Load(),
		Failed:    failed.Load(),
	}
	zap.L().Info("batch complete",
		zap.Int64("succeeded", sum.Succeeded),
		zap.Int64("skipped", sum.Skipped),
		zap.Int64("busy", sum.Busy),
		zap.Int64("failed", sum.Failed),
	)
	return sum, nil
}
