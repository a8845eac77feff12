package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

// RunStore records ingestion runs.
type RunStore interface {
	Create(ctx context.Context, run *models.IngestionRun) error
	Complete(ctx context.Context, run *models.IngestionRun) error
	UpdateStatus(ctx context.Context, runID uuid.UUID, status string, lastError *string, durationMs *int) error
	GetByID(ctx context.Context, runID uuid.UUID) (*models.IngestionRun, error)
	GetLatestSucceeded(ctx context.Context) (*models.IngestionRun, error)
	List(ctx context.Context, limit int) ([]models.IngestionRun, error)
}

// ObservationStore keeps the canonical rows of each successful run.
type ObservationStore interface {
	BulkInsert(ctx context.Context, runID uuid.UUID, observations []models.Observation) error
	GetByRun(ctx context.Context, runID uuid.UUID) ([]models.Observation, error)
}

// MemoryStore implements RunStore and ObservationStore in process memory.
// It backs the service when no database is configured.
type MemoryStore struct {
	mu           sync.RWMutex
	runs         map[uuid.UUID]models.IngestionRun
	order        []uuid.UUID // creation order
	observations map[uuid.UUID][]models.Observation
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:         make(map[uuid.UUID]models.IngestionRun),
		observations: make(map[uuid.UUID][]models.Observation),
	}
}

func (m *MemoryStore) Create(_ context.Context, run *models.IngestionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		m.order = append(m.order, run.ID)
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *MemoryStore) Complete(_ context.Context, run *models.IngestionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return ErrRunNotFound
	}
	m.runs[run.ID] = *run
	return nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, runID uuid.UUID, status string, lastError *string, durationMs *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	run.Status = status
	if lastError != nil {
		run.LastError = lastError
	}
	if durationMs != nil {
		run.DurationMs = durationMs
	}
	if status == models.RunStatusSucceeded || status == models.RunStatusFailed {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}
	m.runs[runID] = run
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, runID uuid.UUID) (*models.IngestionRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (m *MemoryStore) GetLatestSucceeded(_ context.Context) (*models.IngestionRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *models.IngestionRun
	for _, id := range m.order {
		run := m.runs[id]
		if run.Status != models.RunStatusSucceeded {
			continue
		}
		if latest == nil || !run.CreatedAt.Before(latest.CreatedAt) {
			r := run
			latest = &r
		}
	}
	return latest, nil
}

// List returns runs newest first.
func (m *MemoryStore) List(_ context.Context, limit int) ([]models.IngestionRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := make([]models.IngestionRun, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		runs = append(runs, m.runs[m.order[i]])
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *MemoryStore) BulkInsert(_ context.Context, runID uuid.UUID, observations []models.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]models.Observation, len(observations))
	copy(cp, observations)
	m.observations[runID] = cp
	return nil
}

func (m *MemoryStore) GetByRun(_ context.Context, runID uuid.UUID) ([]models.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obs := m.observations[runID]
	cp := make([]models.Observation, len(obs))
	copy(cp, obs)
	return cp, nil
}
