package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"internship-portal/internal/bootstrap"
	"internship-portal/internal/queue"
	"internship-portal/internal/shared/config"
	"internship-portal/internal/shared/metrics"
	"internship-portal/internal/shared/storage/db"
	"internship-portal/internal/shared/telemetry"
	"internship-portal/internal/workerproc"
)

func main() {
	cfg := config.Load()
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	concurrency := max(1, cfg.WorkerConcurrency)
	app, err := bootstrap.Build(ctx, cfg, db.OptionsFromEnv(db.DefaultWorkerOptions(concurrency)))
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	var sweeperDone sync.WaitGroup
	sweeperDone.Add(1)
	go func() {
		defer sweeperDone.Done()
		_ = app.Sweeper.Run(ctx)
	}()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		switch {
		case app.AMQP != nil:
			telemetry.Info("worker.started", map[string]any{"backend": "amqp", "queue": cfg.AMQPQueue, "concurrency": concurrency})
			if err := app.AMQP.Consume(ctx, concurrency, workerproc.Handler(app.AnalysesService, "amqp")); err != nil {
				telemetry.Error("worker.amqp_consume_failed", map[string]any{"error": err.Error()})
				stop()
			}
		case app.SQSQueueURL != "":
			awsCfg, err := queue.LoadAWSConfig(ctx, cfg.AWSRegion)
			if err != nil {
				telemetry.Error("worker.aws_config_failed", map[string]any{"error": err.Error()})
				stop()
				return
			}
			telemetry.Info("worker.started", map[string]any{
				"backend":     "sqs",
				"queue":       app.SQSQueueURL,
				"concurrency": concurrency,
				"visibility":  cfg.SQSVisibility.String(),
			})
			pollSQS(ctx, sqs.NewFromConfig(awsCfg), app.SQSQueueURL, app.AnalysesService, concurrency, cfg.SQSVisibility)
		default:
			telemetry.Warn("worker.no_consumer", map[string]any{
				"backend": cfg.QueueBackend,
				"detail":  "memory jobs run inside the API process",
			})
			stop()
		}
	}()

	<-ctx.Done()
	telemetry.Info("worker.shutdown", map[string]any{"timeout": cfg.ShutdownTimeout.String()})
	select {
	case <-finished:
	case <-time.After(cfg.ShutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"detail": "exiting with in-flight jobs"})
	}
	sweeperDone.Wait()
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// pollSQS long-polls queueURL until ctx is done, then waits for in-flight jobs.
func pollSQS(ctx context.Context, client sqsAPI, queueURL string, processor workerproc.Processor, concurrency int, visibility time.Duration) {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	// in-flight jobs finish after shutdown starts; main bounds the wait
	jobCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			return
		}

		resp, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(visibility / time.Second),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return
			}
			telemetry.Warn("worker.sqs_receive_failed", map[string]any{"error": err.Error()})
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				handleMessage(jobCtx, client, queueURL, processor, m)
			}(msg)
		}
	}
}

// handleMessage runs one SQS message through the shared worker handler. The
// message is deleted on success or when it can never succeed; otherwise it
// becomes visible again after the visibility timeout.
func handleMessage(ctx context.Context, client sqsAPI, queueURL string, processor workerproc.Processor, msg sqstypes.Message) {
	fields := baseFields(msg)
	err := workerproc.Handler(processor, "sqs")(ctx, []byte(aws.ToString(msg.Body)))
	if err != nil && !errors.Is(err, queue.ErrDrop) {
		fields["error"] = err.Error()
		telemetry.Warn("worker.sqs.retry_later", fields)
		return
	}
	deleteMessage(ctx, client, queueURL, msg)
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.sqs.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg)
		fields["error"] = err.Error()
		telemetry.Error("worker.sqs.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message) map[string]any {
	return map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := strings.TrimSpace(msg.Attributes["ApproximateReceiveCount"])
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
