package exports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/assessments"
	"compliance-backend/internal/queue"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/storage/object"
	"compliance-backend/internal/shared/telemetry"
	"compliance-backend/internal/shared/util"
)

// AssessmentReader loads the assessment an export renders.
type AssessmentReader interface {
	GetByID(ctx context.Context, orgID, assessmentID string) (assessments.Assessment, error)
}

// Service coordinates export jobs. With no Queue configured, jobs run on
// in-process goroutines that Wait drains.
type Service struct {
	Repo        Repo
	Assessments AssessmentReader
	Store       object.ObjectStore
	Queue       queue.Client
	Now         func() time.Time

	inflight sync.WaitGroup
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// StorageKey is where a completed export's report lives.
func StorageKey(orgID, exportID string) string {
	return "exports/" + util.HashOrgKey(orgID) + "/" + exportID + ".json"
}

// Request creates a queued export for an assessment owned by orgID and schedules it.
func (s *Service) Request(ctx context.Context, orgID, assessmentID string) (Export, error) {
	if _, err := uuid.Parse(assessmentID); err != nil {
		return Export{}, ErrAssessmentNotFound
	}
	if _, err := s.Assessments.GetByID(ctx, orgID, assessmentID); err != nil {
		if errors.Is(err, assessments.ErrNotFound) {
			return Export{}, ErrAssessmentNotFound
		}
		return Export{}, err
	}

	now := s.now()
	export := Export{
		ID:           uuid.NewString(),
		AssessmentID: assessmentID,
		OrgID:        orgID,
		Status:       StatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, export); err != nil {
		return Export{}, err
	}
	metrics.IncExportJobsRequested()

	requestID := requestIDFromContext(ctx)
	telemetry.Info("export.status", map[string]any{
		"request_id":    requestID,
		"org_id":        orgID,
		"assessment_id": assessmentID,
		"export_id":     export.ID,
		"status":        StatusQueued,
	})

	if s.Queue == nil {
		s.inflight.Add(1)
		go func(ctx context.Context) {
			defer s.inflight.Done()
			_ = s.Process(ctx, export.ID)
		}(backgroundWithRequestID(ctx))
		return export, nil
	}

	if err := s.Queue.Send(ctx, queue.NewMessage(export.ID, requestID, now)); err != nil {
		telemetry.Error("export.enqueue.failed", map[string]any{
			"request_id": requestID,
			"export_id":  export.ID,
			"error":      err,
		})
		_ = s.Repo.MarkFailed(ctx, export.ID, "export could not be scheduled", s.now())
		metrics.IncExportJobsFailed()
		return Export{}, fmt.Errorf("enqueue export: %w", err)
	}
	return export, nil
}

// Wait blocks until in-process export jobs have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Process renders an export's report and stores it. Completed exports are
// left untouched so redelivered messages are harmless.
func (s *Service) Process(ctx context.Context, exportID string) (err error) {
	if _, perr := uuid.Parse(exportID); perr != nil {
		return ErrNotFound
	}
	export, err := s.Repo.GetByID(ctx, exportID)
	if err != nil {
		return err
	}
	if export.Status == StatusCompleted {
		return nil
	}

	requestID := requestIDFromContext(ctx)
	startedAt := s.now()
	defer func() {
		if r := recover(); r != nil {
			err = s.fail(ctx, export, "report rendering failed", fmt.Errorf("panic: %v", r), startedAt)
		}
	}()

	if err := s.Repo.MarkProcessing(ctx, export.ID, startedAt); err != nil {
		return s.fail(ctx, export, "export could not be started", err, startedAt)
	}
	telemetry.Info("export.status", map[string]any{
		"request_id":        requestID,
		"org_id":            export.OrgID,
		"export_id":         export.ID,
		"status":            StatusProcessing,
		"status_transition": export.Status + "->" + StatusProcessing,
	})

	a, err := s.Assessments.GetByID(ctx, export.OrgID, export.AssessmentID)
	if err != nil {
		return s.fail(ctx, export, "assessment is no longer available", err, startedAt)
	}

	payload, err := json.MarshalIndent(BuildReport(a, startedAt), "", "  ")
	if err != nil {
		return s.fail(ctx, export, "report rendering failed", err, startedAt)
	}

	key := StorageKey(export.OrgID, export.ID)
	size, err := s.Store.Put(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return s.fail(ctx, export, "report storage failed", err, startedAt)
	}

	completedAt := s.now()
	if err := s.Repo.MarkCompleted(ctx, export.ID, key, size, completedAt); err != nil {
		return s.fail(ctx, export, "export could not be completed", err, startedAt)
	}

	duration := float64(completedAt.Sub(startedAt).Microseconds()) / 1000
	metrics.IncExportJobsCompleted()
	metrics.ObserveExportDurationMs(duration)
	telemetry.Info("export.status", map[string]any{
		"request_id":        requestID,
		"org_id":            export.OrgID,
		"export_id":         export.ID,
		"status":            StatusCompleted,
		"status_transition": StatusProcessing + "->" + StatusCompleted,
		"size_bytes":        size,
		"duration_ms":       duration,
	})
	return nil
}

// fail records a user-safe message on the export; the underlying cause is only logged.
func (s *Service) fail(ctx context.Context, export Export, message string, cause error, startedAt time.Time) error {
	failedAt := s.now()
	if err := s.Repo.MarkFailed(context.WithoutCancel(ctx), export.ID, message, failedAt); err != nil {
		telemetry.Error("export.mark_failed.failed", map[string]any{
			"export_id": export.ID,
			"error":     err,
		})
	}
	metrics.IncExportJobsFailed()
	telemetry.Error("export.status", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"org_id":      export.OrgID,
		"export_id":   export.ID,
		"status":      StatusFailed,
		"reason":      message,
		"error":       cause,
		"duration_ms": float64(failedAt.Sub(startedAt).Microseconds()) / 1000,
	})
	return fmt.Errorf("%s: %w", message, cause)
}

// Get returns an export owned by orgID.
func (s *Service) Get(ctx context.Context, orgID, exportID string) (Export, error) {
	if _, err := uuid.Parse(exportID); err != nil {
		return Export{}, ErrNotFound
	}
	return s.Repo.GetForOrg(ctx, orgID, exportID)
}

// Open streams a completed export's report. Callers must close the reader.
func (s *Service) Open(ctx context.Context, orgID, exportID string) (io.ReadCloser, Export, error) {
	export, err := s.Get(ctx, orgID, exportID)
	if err != nil {
		return nil, Export{}, err
	}
	if export.Status != StatusCompleted || strings.TrimSpace(export.StorageKey) == "" {
		return nil, export, ErrNotReady
	}
	rc, err := s.Store.Open(ctx, export.StorageKey)
	if err != nil {
		return nil, export, err
	}
	return rc, export, nil
}
