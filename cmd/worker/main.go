package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"compliance-backend/internal/bootstrap"
	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/telemetry"
	"compliance-backend/internal/workerproc"
)

const (
	defaultVisibilitySeconds  = 300
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
)

func main() {
	cfg := config.Load()
	if cfg.ExportQueueURL == "" {
		telemetry.Error("worker.config_invalid", map[string]any{"error": "EXPORT_QUEUE_URL is required"})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer app.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(app.Config.AWSRegion))
	if err != nil {
		telemetry.Error("worker.aws_config_failed", map[string]any{"error": err})
		os.Exit(1)
	}

	opts := pollOptions{
		queueURL:          cfg.ExportQueueURL,
		visibilitySeconds: envInt("WORKER_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds),
		concurrency:       max(1, envInt("WORKER_CONCURRENCY", defaultWorkerConcurrency)),
		shutdownTimeout:   time.Duration(envInt("WORKER_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second,
	}
	telemetry.Info("worker.started", map[string]any{
		"queue_url":          opts.queueURL,
		"concurrency":        opts.concurrency,
		"visibility_seconds": opts.visibilitySeconds,
	})
	poll(ctx, sqs.NewFromConfig(awsCfg), app.ExportsService, opts)
}

type pollOptions struct {
	queueURL          string
	visibilitySeconds int
	concurrency       int
	shutdownTimeout   time.Duration
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// poll long-polls the queue until ctx is cancelled, running at most
// opts.concurrency jobs at a time, then waits up to opts.shutdownTimeout for
// in-flight jobs. Jobs outlive ctx and are only cancelled once the drain
// window expires.
func poll(ctx context.Context, client sqsAPI, proc workerproc.Processor, opts pollOptions) {
	var g errgroup.Group
	g.SetLimit(opts.concurrency)

	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

pollLoop:
	for ctx.Err() == nil {
		resp, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(opts.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(opts.visibilitySeconds),
			MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{
				sqstypes.MessageSystemAttributeNameApproximateReceiveCount,
			},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err})
			continue
		}

		for _, msg := range resp.Messages {
			if ctx.Err() != nil {
				break pollLoop
			}
			metrics.IncExportJobsReceived()
			g.Go(func() error {
				handleMessage(jobCtx, client, opts.queueURL, proc, msg)
				return nil
			})
		}
	}

	telemetry.Info("worker.shutdown", map[string]any{"timeout_ms": opts.shutdownTimeout.Milliseconds()})
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(opts.shutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{})
		cancelJobs()
	}
}

func handleMessage(ctx context.Context, client sqsAPI, queueURL string, proc workerproc.Processor, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, decoded.ExportID, decoded.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err
		telemetry.Error("worker.export.invalid_message", fields)
		if deleteMessage(ctx, client, queueURL, msg, decoded.ExportID, decoded.RequestID) {
			metrics.IncExportJobsDeletedUnrecoverable()
		}
		return
	}

	telemetry.Info("worker.export.received", baseFields(msg, decoded.ExportID, decoded.RequestID))

	ctxWithParsed := workerproc.WithParsedMessage(ctx, decoded)
	if err := workerproc.HandleMessage(ctxWithParsed, proc, body); err != nil {
		fields := baseFields(msg, decoded.ExportID, decoded.RequestID)
		fields["error"] = err
		if workerproc.Unrecoverable(err) {
			telemetry.Error("worker.export.unrecoverable", fields)
			if deleteMessage(ctx, client, queueURL, msg, decoded.ExportID, decoded.RequestID) {
				metrics.IncExportJobsDeletedUnrecoverable()
			}
			return
		}
		// Left on the queue; SQS redelivers after the visibility timeout.
		telemetry.Error("worker.export.failed", fields)
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.ExportID, decoded.RequestID) {
		telemetry.Info("worker.export.completed", baseFields(msg, decoded.ExportID, decoded.RequestID))
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, exportID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, exportID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.export.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(context.WithoutCancel(ctx), &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, exportID, requestID)
		fields["error"] = err
		telemetry.Error("worker.export.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, exportID, requestID string) map[string]any {
	fields := map[string]any{
		"export_id":      exportID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	raw := msg.Attributes[string(sqstypes.MessageSystemAttributeNameApproximateReceiveCount)]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
