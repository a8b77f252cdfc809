// Package purge orchestrates one inactive-user purge run: authenticate,
// fetch, classify, back up and delete each candidate, archive the backups.
package purge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bgilleran-port/port-tsm-scripts/internal/backup"
	"github.com/bgilleran-port/port-tsm-scripts/internal/classify"
	"github.com/bgilleran-port/port-tsm-scripts/internal/config"
	perrors "github.com/bgilleran-port/port-tsm-scripts/internal/errors"
	"github.com/bgilleran-port/port-tsm-scripts/internal/metrics"
	"github.com/bgilleran-port/port-tsm-scripts/internal/port"
)

// API is the slice of the Port client the runner needs.
type API interface {
	Authenticate(ctx context.Context, clientID, clientSecret string) (string, error)
	ListEntities(ctx context.Context) ([]port.Entity, error)
	DeleteEntity(ctx context.Context, identifier string) error
}

// DeleteResult reports the outcome of one remote delete with its diagnostic
// payload. Deletes fail softly: the result is inspected, never raised.
type DeleteResult struct {
	OK         bool
	StatusCode int
	Body       string
	Err        error
}

// Summary is the final report of a run.
type Summary struct {
	Fetched    int
	Candidates int
	Removed    []string // display names of deleted users
	Failed     []string // display names of users whose deletion failed
	Archive    string   // archive path, empty when nothing was archived
	DryRun     bool
}

// Runner executes the purge pipeline. Stages run strictly in order; a failure
// before the per-entity loop aborts the run, failures inside it are isolated
// to their entity.
type Runner struct {
	cfg        *config.Config
	api        API
	classifier *classify.Classifier
	store      *backup.Store
	metrics    *metrics.RunMetrics
	logger     zerolog.Logger

	// Now is the clock used for the archive name, injectable for tests.
	Now func() time.Time
}

// NewRunner wires a Runner from its collaborators. metrics may be nil.
func NewRunner(cfg *config.Config, api API, classifier *classify.Classifier, store *backup.Store, m *metrics.RunMetrics, logger zerolog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		api:        api,
		classifier: classifier,
		store:      store,
		metrics:    m,
		logger:     logger.With().Str("component", "purge").Logger(),
		Now:        time.Now,
	}
}

// Run executes one purge. The returned error is non-nil only for failures in
// the authenticate or fetch stages; everything after that completes and
// reports a Summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := r.Now()
	r.logger.Info().
		Int("days_threshold", r.cfg.DaysThreshold).
		Bool("dry_run", r.cfg.DryRun).
		Msg("starting inactive user cleanup")

	if _, err := r.api.Authenticate(ctx, r.cfg.PortClientID, r.cfg.PortClientSecret); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	r.logger.Info().Msg("authenticated with Port API")

	entities, err := r.api.ListEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching users failed: %w", err)
	}
	r.logger.Info().Int("total", len(entities)).Msg("fetched users")

	candidates := r.classifyAll(entities)
	summary := &Summary{
		Fetched:    len(entities),
		Candidates: len(candidates),
		DryRun:     r.cfg.DryRun,
	}

	switch {
	case len(candidates) == 0:
		r.logger.Info().Msg("no users to delete")
		// A working directory left over from an earlier run is still removed.
		if err := r.store.Cleanup(); err != nil {
			r.logger.Warn().Err(err).Msg("cleanup of backup directory failed")
		}
	case r.cfg.DryRun:
		for i := range candidates {
			e := &candidates[i]
			r.logger.Info().
				Str("user", e.DisplayName()).
				Str("identifier", e.Identifier).
				Str("status", e.Status()).
				Str("last_activity", e.LastActivity()).
				Msg("dry run: would delete user")
		}
	default:
		if err := r.processAll(ctx, candidates, summary); err != nil {
			return nil, err
		}
		r.archiveAndCleanup(summary)
	}

	r.report(summary)
	if r.metrics != nil {
		r.metrics.Observe(summary.Fetched, summary.Candidates, len(summary.Removed), len(summary.Failed), r.Now().Sub(start))
		r.metrics.Push(r.cfg.PushgatewayURL, r.logger)
	}
	return summary, nil
}

// classifyAll narrows the fetched entities to purge candidates, logging each
// narrowing step.
func (r *Runner) classifyAll(entities []port.Entity) []port.Entity {
	var inactive []port.Entity
	for i := range entities {
		if r.classifier.IsInactiveStatus(&entities[i]) {
			inactive = append(inactive, entities[i])
		}
	}
	r.logger.Info().Int("inactive_status", len(inactive)).Msg("filtered users by status")

	var candidates []port.Entity
	for i := range inactive {
		if r.classifier.LacksRecentActivity(&inactive[i]) {
			candidates = append(candidates, inactive[i])
		}
	}
	r.logger.Info().
		Int("candidates", len(candidates)).
		Int("days_threshold", r.cfg.DaysThreshold).
		Msg("identified inactive users with no recent activity")
	return candidates
}

// processAll backs up and deletes each candidate. One entity's failure never
// aborts the batch.
func (r *Runner) processAll(ctx context.Context, candidates []port.Entity, summary *Summary) error {
	if err := r.store.Ensure(); err != nil {
		return err
	}

	for i := range candidates {
		e := &candidates[i]
		if r.processOne(ctx, e) {
			summary.Removed = append(summary.Removed, e.DisplayName())
		} else {
			summary.Failed = append(summary.Failed, e.DisplayName())
		}
	}
	return nil
}

// processOne runs the backup-then-delete sequence for a single entity and
// reports whether the user was removed. On delete failure the just-written
// backup is removed so no backup survives for a user that is still live.
func (r *Runner) processOne(ctx context.Context, e *port.Entity) bool {
	logger := r.logger.With().
		Str("user", e.DisplayName()).
		Str("identifier", e.Identifier).
		Logger()

	if _, err := r.store.Write(e); err != nil {
		logger.Error().Err(err).Msg("error processing user")
		return false
	}
	logger.Info().Msg("backed up user")

	res := r.deleteOne(ctx, e.Identifier)
	if !res.OK {
		logger.Warn().
			Int("status", res.StatusCode).
			Str("body", res.Body).
			Err(res.Err).
			Msg("failed to delete user")
		if err := r.store.Remove(e.Identifier); err != nil {
			logger.Error().Err(err).Msg("could not remove backup of failed deletion")
		}
		return false
	}

	logger.Info().Msg("deleted user")
	return true
}

// deleteOne issues the remote delete and folds the outcome into a
// DeleteResult.
func (r *Runner) deleteOne(ctx context.Context, identifier string) DeleteResult {
	err := r.api.DeleteEntity(ctx, identifier)
	if err == nil {
		return DeleteResult{OK: true}
	}

	res := DeleteResult{Err: err}
	var apiErr *perrors.APIError
	if errors.As(err, &apiErr) {
		res.StatusCode = apiErr.StatusCode
		res.Body = apiErr.Body
	}
	return res
}

// archiveAndCleanup bundles surviving backups when at least one user was
// removed, then unconditionally removes the working directory. Neither step
// can fail the run.
func (r *Runner) archiveAndCleanup(summary *Summary) {
	if len(summary.Removed) > 0 {
		name := backup.ArchiveName(r.Now())
		if err := r.store.Archive(name); err != nil {
			r.logger.Error().Err(err).Msg("error creating backup archive")
		} else {
			summary.Archive = name
		}
	}

	if err := r.store.Cleanup(); err != nil {
		r.logger.Warn().Err(err).Msg("cleanup of backup directory failed")
	}
}

// report logs the final summary, listing removed and failed users by display
// name.
func (r *Runner) report(summary *Summary) {
	event := r.logger.Info().
		Int("fetched", summary.Fetched).
		Int("candidates", summary.Candidates).
		Int("removed", len(summary.Removed)).
		Int("failed", len(summary.Failed)).
		Bool("dry_run", summary.DryRun)
	if summary.Archive != "" {
		event = event.Str("archive", summary.Archive)
	}
	event.Msg("purge run complete")

	for _, name := range summary.Removed {
		r.logger.Info().Str("user", name).Msg("removed")
	}
	for _, name := range summary.Failed {
		r.logger.Warn().Str("user", name).Msg("failed to delete")
	}
}
