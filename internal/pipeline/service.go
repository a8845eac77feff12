// Package pipeline owns the published canonical table. Each ingestion cycle
// parses a spreadsheet, records the run, persists the rows and then swaps
// the served snapshot in one atomic step, so readers never observe a
// partially built table. A failed cycle leaves the previous snapshot in
// service.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fuelmetrics/fuelmetrics-api/internal/ingest"
	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/schema"
)

var (
	// ErrNoFetcher is returned by Refresh when no source is configured.
	ErrNoFetcher = errors.New("no spreadsheet source configured")
	// ErrEmptyTable means the spreadsheet parsed but produced no usable rows.
	ErrEmptyTable = errors.New("spreadsheet produced no usable rows")
	// ErrRunNotFound is returned by stores for an unknown run id.
	ErrRunNotFound = errors.New("ingestion run not found")
)

// Fetcher produces the raw bytes of the latest spreadsheet and a
// description of where they came from.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, string, error)
}

// Snapshot is one published canonical table with its provenance.
type Snapshot struct {
	RunID       uuid.UUID
	Table       *models.CanonicalTable
	Report      models.DropReport
	HeaderRow   int
	Columns     schema.ColumnMap
	Source      string
	ContentHash string
	IngestedAt  time.Time
}

// Config tunes retries and staleness.
type Config struct {
	MaxRetries    int
	RetryBaseWait time.Duration
	StaleAfter    time.Duration
}

// Service holds the current snapshot and runs ingestion cycles.
type Service struct {
	ingester     *ingest.Ingester
	runs         RunStore
	observations ObservationStore
	fetcher      Fetcher
	cfg          Config

	current atomic.Pointer[Snapshot]
	// cycle serializes ingestion cycles; readers never take it.
	cycle sync.Mutex
	now   func() time.Time
}

// NewService creates a Service. fetcher may be nil, in which case only
// IngestBytes can publish snapshots.
func NewService(ingester *ingest.Ingester, runs RunStore, observations ObservationStore, fetcher Fetcher, cfg Config) *Service {
	if ingester == nil {
		ingester = ingest.New(ingest.Options{})
	}
	return &Service{
		ingester:     ingester,
		runs:         runs,
		observations: observations,
		fetcher:      fetcher,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Current returns the published snapshot, if any.
func (s *Service) Current() (*Snapshot, bool) {
	snap := s.current.Load()
	return snap, snap != nil
}

// IsStale reports whether the snapshot is missing or older than StaleAfter.
// A zero StaleAfter never goes stale.
func (s *Service) IsStale(now time.Time) bool {
	snap := s.current.Load()
	if snap == nil {
		return true
	}
	if s.cfg.StaleAfter <= 0 {
		return false
	}
	return now.Sub(snap.IngestedAt) > s.cfg.StaleAfter
}

// Runs lists recorded ingestion runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]models.IngestionRun, error) {
	return s.runs.List(ctx, limit)
}

// Run returns one recorded run, or nil when the id is unknown.
func (s *Service) Run(ctx context.Context, runID uuid.UUID) (*models.IngestionRun, error) {
	return s.runs.GetByID(ctx, runID)
}

// IngestBytes runs one ingestion cycle over raw and publishes the result.
// When raw is byte-identical to the published snapshot's source the cycle is
// skipped and the current snapshot is returned with changed == false.
func (s *Service) IngestBytes(ctx context.Context, raw []byte, source string) (snap *Snapshot, changed bool, err error) {
	s.cycle.Lock()
	defer s.cycle.Unlock()

	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])

	if cur := s.current.Load(); cur != nil && cur.ContentHash == hash {
		slog.Default().Info("spreadsheet unchanged, keeping current snapshot",
			slog.String("service", "ingestion-pipeline"),
			slog.String("run_id", cur.RunID.String()),
			slog.String("content_hash", hash))
		return cur, false, nil
	}

	startTime := s.now()
	run := &models.IngestionRun{
		ID:          uuid.New(),
		Status:      models.RunStatusRunning,
		Source:      source,
		ContentHash: hash,
		StartedAt:   &startTime,
		CreatedAt:   startTime,
	}
	logger := slog.Default().With(
		slog.String("service", "ingestion-pipeline"),
		slog.String("run_id", run.ID.String()),
		slog.String("source", source),
	)

	// Step a: record the run
	stepLogger := logger.With(slog.String("step", "create_run"))
	if err := s.runs.Create(ctx, run); err != nil {
		stepLogger.Error("failed to create run record", slog.String("error", err.Error()))
		return nil, false, fmt.Errorf("create run: %w", err)
	}

	// Step b: parse, resolve and canonicalize
	stepLogger = logger.With(slog.String("step", "canonicalize"))
	stepLogger.Info("ingesting spreadsheet", slog.Int("bytes", len(raw)))

	result, err := s.ingester.Ingest(raw)
	if err != nil {
		stepLogger.Error("ingestion failed", slog.String("error", err.Error()))
		return nil, false, s.failRun(ctx, logger, run, startTime, err)
	}
	if result.Table.Len() == 0 {
		stepLogger.Warn("no usable rows", slog.Int("rows_in", result.Report.RowsIn))
		return nil, false, s.failRun(ctx, logger, run, startTime, ErrEmptyTable)
	}

	// Step c: persist observations
	stepLogger = logger.With(slog.String("step", "persist"))
	if err := s.observations.BulkInsert(ctx, run.ID, result.Table.Observations()); err != nil {
		stepLogger.Error("failed to persist observations", slog.String("error", err.Error()))
		return nil, false, s.failRun(ctx, logger, run, startTime, fmt.Errorf("persist observations: %w", err))
	}
	stepLogger.Info("observations persisted", slog.Int("count", result.Table.Len()))

	// Step d: complete the run
	stepLogger = logger.With(slog.String("step", "complete_run"))
	if err := s.completeRun(ctx, run, result, startTime); err != nil {
		stepLogger.Error("failed to complete run record", slog.String("error", err.Error()))
		return nil, false, s.failRun(ctx, logger, run, startTime, fmt.Errorf("complete run: %w", err))
	}

	// Step e: publish
	snap = &Snapshot{
		RunID:       run.ID,
		Table:       result.Table,
		Report:      result.Report,
		HeaderRow:   result.Resolution.HeaderRow,
		Columns:     result.Resolution.Columns,
		Source:      source,
		ContentHash: hash,
		IngestedAt:  *run.CompletedAt,
	}
	s.current.Store(snap)

	logger.Info("snapshot published",
		slog.Int("rows_out", result.Report.RowsOut),
		slog.Int("duration_ms", *run.DurationMs))

	return snap, true, nil
}

func (s *Service) completeRun(ctx context.Context, run *models.IngestionRun, result *ingest.Result, startTime time.Time) error {
	columns, err := json.Marshal(result.Resolution.Columns)
	if err != nil {
		return err
	}
	report, err := json.Marshal(result.Report)
	if err != nil {
		return err
	}

	completedAt := s.now()
	run.Status = models.RunStatusSucceeded
	run.HeaderRow = intPtr(result.Resolution.HeaderRow)
	run.ColumnMap = columns
	run.DropReport = report
	run.RowsIn = intPtr(result.Report.RowsIn)
	run.RowsOut = intPtr(result.Report.RowsOut)
	run.DurationMs = intPtr(int(completedAt.Sub(startTime).Milliseconds()))
	run.CompletedAt = &completedAt

	return s.runs.Complete(ctx, run)
}

// failRun marks the run failed and returns cause.
func (s *Service) failRun(ctx context.Context, logger *slog.Logger, run *models.IngestionRun, startTime time.Time, cause error) error {
	msg := cause.Error()
	duration := int(s.now().Sub(startTime).Milliseconds())

	if err := s.runs.UpdateStatus(ctx, run.ID, models.RunStatusFailed, &msg, &duration); err != nil {
		logger.Error("failed to update run status to failed",
			slog.String("update_error", err.Error()))
	}
	return cause
}

// Refresh fetches the latest spreadsheet and ingests it, retrying transient
// failures with exponential backoff. Structural spreadsheet errors are not
// retried since a new download would return the same file.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, bool, error) {
	if s.fetcher == nil {
		return nil, false, ErrNoFetcher
	}
	logger := slog.Default().With(slog.String("service", "ingestion-pipeline"))

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		logger.Info("refreshing spreadsheet",
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", s.cfg.MaxRetries))

		snap, changed, err := s.refreshOnce(ctx, logger)
		if err == nil {
			return snap, changed, nil
		}
		lastErr = err
		logger.Warn("refresh failed",
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt+1))

		if !retryable(err) || attempt >= s.cfg.MaxRetries {
			break
		}

		backoff := calculateBackoff(s.cfg.RetryBaseWait, attempt)
		logger.Info("retrying after backoff",
			slog.Int("backoff_ms", int(backoff.Milliseconds())),
			slog.Int("next_attempt", attempt+2))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			logger.Info("context cancelled, stopping retries")
			return nil, false, ctx.Err()
		}
	}

	logger.Error("refresh gave up, previous snapshot stays in service",
		slog.String("error", lastErr.Error()))
	return nil, false, fmt.Errorf("refresh: %w", lastErr)
}

func (s *Service) refreshOnce(ctx context.Context, logger *slog.Logger) (*Snapshot, bool, error) {
	stepLogger := logger.With(slog.String("step", "fetch"))
	raw, source, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("fetch: %w", err)
	}
	stepLogger.Info("spreadsheet downloaded",
		slog.String("source", source),
		slog.Int("bytes", len(raw)))

	return s.IngestBytes(ctx, raw, source)
}

// retryable reports whether a failed cycle may succeed on a second try.
func retryable(err error) bool {
	var notFound *schema.SchemaNotFoundError
	var missing *schema.RequiredColumnMissingError
	switch {
	case errors.As(err, &notFound), errors.As(err, &missing):
		return false
	case errors.Is(err, ErrEmptyTable), errors.Is(err, schema.ErrEmptyGrid), errors.Is(err, ingest.ErrUnsupportedFormat):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// Restore republishes the latest successful run from the stores. It only
// publishes when nothing is being served yet and returns false when there
// is nothing to restore.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	run, err := s.runs.GetLatestSucceeded(ctx)
	if err != nil {
		return false, fmt.Errorf("load latest run: %w", err)
	}
	if run == nil {
		return false, nil
	}

	observations, err := s.observations.GetByRun(ctx, run.ID)
	if err != nil {
		return false, fmt.Errorf("load observations: %w", err)
	}
	if len(observations) == 0 {
		return false, nil
	}

	snap := &Snapshot{
		RunID:       run.ID,
		Table:       models.NewCanonicalTable(observations),
		Source:      run.Source,
		ContentHash: run.ContentHash,
		IngestedAt:  run.CreatedAt,
	}
	if run.CompletedAt != nil {
		snap.IngestedAt = *run.CompletedAt
	}
	if run.HeaderRow != nil {
		snap.HeaderRow = *run.HeaderRow
	}
	if len(run.ColumnMap) > 0 {
		if err := json.Unmarshal(run.ColumnMap, &snap.Columns); err != nil {
			return false, fmt.Errorf("decode column map: %w", err)
		}
	}
	if len(run.DropReport) > 0 {
		if err := json.Unmarshal(run.DropReport, &snap.Report); err != nil {
			return false, fmt.Errorf("decode drop report: %w", err)
		}
	}

	if !s.current.CompareAndSwap(nil, snap) {
		return false, nil
	}

	slog.Default().Info("snapshot restored",
		slog.String("service", "ingestion-pipeline"),
		slog.String("run_id", run.ID.String()),
		slog.Int("rows", snap.Table.Len()),
		slog.Time("ingested_at", snap.IngestedAt))
	return true, nil
}

func intPtr(i int) *int {
	return &i
}
