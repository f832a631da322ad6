package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/goleak"

	"compliance-backend/internal/exports"
	"compliance-backend/internal/queue"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSQS struct {
	mu       sync.Mutex
	batches  [][]sqstypes.Message
	deleted  []string
	onDrain  func()
	received int
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	if f.received < len(f.batches) {
		batch := f.batches[f.received]
		f.received++
		f.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: batch}, nil
	}
	onDrain := f.onDrain
	f.mu.Unlock()
	if onDrain != nil {
		onDrain()
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err error
}

func (f fakeProcessor) Process(context.Context, string) error {
	return f.err
}

// slowProcessor signals when a job starts and then runs for delay unless its
// context is cancelled first.
type slowProcessor struct {
	started chan struct{}
	delay   time.Duration
}

func (p slowProcessor) Process(ctx context.Context, _ string) error {
	close(p.started)
	select {
	case <-time.After(p.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func message(t *testing.T, id string, body string) sqstypes.Message {
	t.Helper()
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(body),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func exportBody(t *testing.T, exportID string) string {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{ExportID: exportID, RequestID: "req-1", Version: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(body)
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	handleMessage(context.Background(), client, "queue", fakeProcessor{}, message(t, "m1", exportBody(t, "export-1")))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDoesNotDeleteOnFailure(t *testing.T) {
	client := &fakeSQS{}
	handleMessage(context.Background(), client, "queue", fakeProcessor{err: errors.New("boom")}, message(t, "m2", exportBody(t, "export-2")))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	handleMessage(context.Background(), client, "queue", fakeProcessor{}, message(t, "m3", "{bad-json"))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesWhenExportIsGone(t *testing.T) {
	client := &fakeSQS{}
	handleMessage(context.Background(), client, "queue", fakeProcessor{err: exports.ErrNotFound}, message(t, "m4", exportBody(t, "export-4")))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestPollDrainsBatchesAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeSQS{
		batches: [][]sqstypes.Message{
			{message(t, "a", exportBody(t, "e-a")), message(t, "b", exportBody(t, "e-b"))},
			{message(t, "c", exportBody(t, "e-c"))},
		},
		onDrain: cancel,
	}

	done := make(chan struct{})
	go func() {
		poll(ctx, client, fakeProcessor{}, pollOptions{queueURL: "queue", concurrency: 2, shutdownTimeout: 5 * time.Second})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("poll did not stop")
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.deleted) != 3 {
		t.Fatalf("expected 3 deletes, got %v", client.deleted)
	}
}

func TestPollLetsInFlightJobFinishAfterShutdownSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	proc := slowProcessor{started: make(chan struct{}), delay: 50 * time.Millisecond}
	client := &fakeSQS{
		batches: [][]sqstypes.Message{{message(t, "slow", exportBody(t, "e-slow"))}},
		onDrain: func() {
			<-proc.started
			cancel()
		},
	}

	poll(ctx, client, proc, pollOptions{queueURL: "queue", concurrency: 1, shutdownTimeout: 5 * time.Second})

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.deleted) != 1 || client.deleted[0] != "r-slow" {
		t.Fatalf("expected in-flight job to complete and be deleted, got %v", client.deleted)
	}
}

func TestPollCancelsJobsAfterShutdownTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	proc := slowProcessor{started: make(chan struct{}), delay: time.Minute}
	client := &fakeSQS{
		batches: [][]sqstypes.Message{{message(t, "stuck", exportBody(t, "e-stuck"))}},
		onDrain: func() {
			<-proc.started
			cancel()
		},
	}

	start := time.Now()
	poll(ctx, client, proc, pollOptions{queueURL: "queue", concurrency: 1, shutdownTimeout: 20 * time.Millisecond})
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("poll ignored shutdown timeout, took %s", elapsed)
	}

	// The cancelled job must not be acknowledged.
	time.Sleep(20 * time.Millisecond)
	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete for cancelled job, got %v", client.deleted)
	}
}
