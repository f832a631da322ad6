package exports

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-backend/internal/queue"
	"compliance-backend/internal/shared/util"
)

func TestRequestRunsInProcessWithoutQueue(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssessment(t, "org-1", 45, 40)

	export, err := f.svc.Request(WithRequestID(context.Background(), "req-1"), "org-1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, export.Status)
	f.svc.Wait()

	got, err := f.svc.Get(context.Background(), "org-1", export.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "exports/"+util.HashOrgKey("org-1")+"/"+export.ID+".json", got.StorageKey)
	assert.Positive(t, got.SizeBytes)
	require.NotNil(t, got.CompletedAt)

	rc, _, err := f.svc.Open(context.Background(), "org-1", export.ID)
	require.NoError(t, err)
	defer rc.Close()
	var report Report
	require.NoError(t, json.NewDecoder(rc).Decode(&report))
	assert.Len(t, report.Tables, 4)
}

func TestRequestEnqueuesWhenQueueConfigured(t *testing.T) {
	f := newFixture(t)
	q := &stubQueue{}
	f.svc.Queue = q
	a := f.seedAssessment(t, "org-1", 60, 60)

	export, err := f.svc.Request(WithRequestID(context.Background(), "req-9"), "org-1", a.ID)
	require.NoError(t, err)

	require.Len(t, q.messages, 1)
	assert.Equal(t, export.ID, q.messages[0].ExportID)
	assert.Equal(t, "req-9", q.messages[0].RequestID)
	assert.Equal(t, queue.MessageVersion, q.messages[0].Version)

	stored, err := f.repo.GetByID(context.Background(), export.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, stored.Status)

	require.NoError(t, f.svc.Process(context.Background(), export.ID))
	stored, err = f.repo.GetByID(context.Background(), export.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)

	// Redelivery of a completed export is a no-op.
	require.NoError(t, f.svc.Process(context.Background(), export.ID))
}

func TestRequestEnqueueFailureMarksExportFailed(t *testing.T) {
	f := newFixture(t)
	f.svc.Queue = queue.ClientFunc(func(context.Context, queue.Message) error {
		return errors.New("sqs down")
	})
	a := f.seedAssessment(t, "org-1", 60, 60)

	_, err := f.svc.Request(context.Background(), "org-1", a.ID)
	require.Error(t, err)

	f.repo.mu.RLock()
	defer f.repo.mu.RUnlock()
	require.Len(t, f.repo.byID, 1)
	for _, e := range f.repo.byID {
		assert.Equal(t, StatusFailed, e.Status)
	}
}

func TestRequestUnknownAssessment(t *testing.T) {
	f := newFixture(t)
	a := f.seedAssessment(t, "org-1", 60, 60)

	_, err := f.svc.Request(context.Background(), "org-2", a.ID)
	assert.ErrorIs(t, err, ErrAssessmentNotFound)

	_, err = f.svc.Request(context.Background(), "org-1", "nope")
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestProcessStoreFailureIsSanitized(t *testing.T) {
	f := newFixture(t)
	f.svc.Queue = &stubQueue{}
	f.svc.Store = failingStore{}
	a := f.seedAssessment(t, "org-1", 60, 60)

	export, err := f.svc.Request(context.Background(), "org-1", a.ID)
	require.NoError(t, err)

	err = f.svc.Process(context.Background(), export.ID)
	require.Error(t, err)

	stored, err := f.repo.GetByID(context.Background(), export.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, "report storage failed", stored.ErrorMessage)
	assert.False(t, strings.Contains(stored.ErrorMessage, "arn:"))

	_, _, err = f.svc.Open(context.Background(), "org-1", export.ID)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestProcessUnknownExport(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.svc.Process(context.Background(), "not-a-uuid"), ErrNotFound)
	assert.ErrorIs(t, f.svc.Process(context.Background(), "7a4c7e0e-1f1b-4d8e-9a43-3f1f1c2d7a10"), ErrNotFound)
}

func TestGetScopesByOrg(t *testing.T) {
	f := newFixture(t)
	f.svc.Queue = &stubQueue{}
	a := f.seedAssessment(t, "org-1", 60, 60)

	export, err := f.svc.Request(context.Background(), "org-1", a.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), "org-2", export.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = f.svc.Open(context.Background(), "org-1", export.ID)
	assert.ErrorIs(t, err, ErrNotReady)
}

