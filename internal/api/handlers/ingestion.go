package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fuelmetrics/fuelmetrics-api/internal/api/response"
	"github.com/fuelmetrics/fuelmetrics-api/internal/ingest"
	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/pipeline"
	"github.com/fuelmetrics/fuelmetrics-api/internal/schema"
)

const defaultRunListLimit = 20

// IngestionService is the write side of the ingestion pipeline.
type IngestionService interface {
	SnapshotSource
	IngestBytes(ctx context.Context, raw []byte, source string) (*pipeline.Snapshot, bool, error)
	Refresh(ctx context.Context) (*pipeline.Snapshot, bool, error)
	Runs(ctx context.Context, limit int) ([]models.IngestionRun, error)
	Run(ctx context.Context, runID uuid.UUID) (*models.IngestionRun, error)
}

// IngestionHandler exposes the admin operations on ingestion runs.
type IngestionHandler struct {
	svc         IngestionService
	maxFileSize int64
	now         func() time.Time
}

// NewIngestionHandler creates a new ingestion handler.
func NewIngestionHandler(svc IngestionService, maxFileSize int64) *IngestionHandler {
	return &IngestionHandler{
		svc:         svc,
		maxFileSize: maxFileSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// snapshotView is the JSON form of a published snapshot.
type snapshotView struct {
	RunID       uuid.UUID         `json:"run_id"`
	Source      string            `json:"source"`
	ContentHash string            `json:"content_hash"`
	HeaderRow   int               `json:"header_row"`
	Columns     schema.ColumnMap  `json:"column_map"`
	DropReport  models.DropReport `json:"drop_report"`
	Records     int               `json:"records"`
	IngestedAt  time.Time         `json:"ingested_at"`
	Stale       bool              `json:"stale"`
	Changed     *bool             `json:"changed,omitempty"`
}

func (h *IngestionHandler) view(snap *pipeline.Snapshot) snapshotView {
	return snapshotView{
		RunID:       snap.RunID,
		Source:      snap.Source,
		ContentHash: snap.ContentHash,
		HeaderRow:   snap.HeaderRow,
		Columns:     snap.Columns,
		DropReport:  snap.Report,
		Records:     snap.Table.Len(),
		IngestedAt:  snap.IngestedAt,
		Stale:       h.svc.IsStale(h.now()),
	}
}

// HandleUpload handles POST /api/v1/ingestions.
func (h *IngestionHandler) HandleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file field is required", nil)
		return
	}

	if file.Size > h.maxFileSize {
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds max size of %d bytes", h.maxFileSize), nil)
		return
	}

	src, err := file.Open()
	if err != nil {
		response.InternalError(c, "failed to open uploaded file")
		return
	}
	defer src.Close()

	raw, err := io.ReadAll(io.LimitReader(src, h.maxFileSize+1))
	if err != nil {
		response.InternalError(c, "failed to read uploaded file")
		return
	}
	if int64(len(raw)) > h.maxFileSize {
		response.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds max size of %d bytes", h.maxFileSize), nil)
		return
	}

	snap, changed, err := h.svc.IngestBytes(c.Request.Context(), raw, "upload:"+file.Filename)
	if err != nil {
		writeIngestError(c, err)
		return
	}

	v := h.view(snap)
	v.Changed = &changed
	status := http.StatusCreated
	if !changed {
		status = http.StatusOK
	}
	response.Success(c, status, v)
}

// HandleRefresh handles POST /api/v1/ingestions/refresh.
func (h *IngestionHandler) HandleRefresh(c *gin.Context) {
	snap, changed, err := h.svc.Refresh(c.Request.Context())
	if err != nil {
		if errors.Is(err, pipeline.ErrNoFetcher) {
			response.Error(c, http.StatusServiceUnavailable, "NO_SOURCE", err.Error(), nil)
			return
		}
		writeIngestError(c, err)
		return
	}

	v := h.view(snap)
	v.Changed = &changed
	response.Success(c, http.StatusOK, v)
}

// HandleListRuns handles GET /api/v1/ingestions.
func (h *IngestionHandler) HandleListRuns(c *gin.Context) {
	limit, ok := intQuery(c, "limit", defaultRunListLimit, maxListLimit)
	if !ok {
		return
	}
	runs, err := h.svc.Runs(c.Request.Context(), limit)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to list ingestion runs: %v", err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"runs": runs})
}

// HandleCurrent handles GET /api/v1/ingestions/current.
func (h *IngestionHandler) HandleCurrent(c *gin.Context) {
	snap, ok := h.svc.Current()
	if !ok {
		response.NoData(c)
		return
	}
	response.Success(c, http.StatusOK, h.view(snap))
}

// HandleGetRun handles GET /api/v1/ingestions/:run_id.
func (h *IngestionHandler) HandleGetRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("run_id"))
	if err != nil {
		response.BadRequest(c, "invalid run_id format", nil)
		return
	}

	run, err := h.svc.Run(c.Request.Context(), runID)
	if err != nil {
		response.InternalError(c, fmt.Sprintf("failed to retrieve ingestion run: %v", err))
		return
	}
	if run == nil {
		response.NotFound(c, "ingestion run not found")
		return
	}
	response.Success(c, http.StatusOK, run)
}

// writeIngestError maps ingestion failures onto HTTP responses. Structural
// spreadsheet problems are the caller's fault and come back as 422.
func writeIngestError(c *gin.Context, err error) {
	var notFound *schema.SchemaNotFoundError
	var missing *schema.RequiredColumnMissingError

	switch {
	case errors.As(err, &notFound):
		response.UnprocessableEntity(c, "SCHEMA_NOT_FOUND", err.Error(), gin.H{
			"rows_scanned": notFound.RowsScanned,
			"best_score":   notFound.BestScore,
			"min_matches":  notFound.MinMatches,
		})
	case errors.As(err, &missing):
		response.UnprocessableEntity(c, "REQUIRED_COLUMN_MISSING", err.Error(), gin.H{
			"field":  missing.Field,
			"header": missing.Header,
		})
	case errors.Is(err, pipeline.ErrEmptyTable):
		response.UnprocessableEntity(c, "EMPTY_TABLE", err.Error(), nil)
	case errors.Is(err, schema.ErrEmptyGrid):
		response.UnprocessableEntity(c, "EMPTY_SPREADSHEET", err.Error(), nil)
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		response.UnprocessableEntity(c, "UNSUPPORTED_FORMAT", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusGatewayTimeout, "TIMEOUT", err.Error(), nil)
	default:
		slog.Default().Error("ingestion failed", slog.String("error", err.Error()))
		response.Error(c, http.StatusInternalServerError, "INGESTION_FAILED", err.Error(), nil)
	}
}
