package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker
//
// The function is subscribed to the analysis SQS queue with ReportBatchItemFailures
// enabled, so only failed records are retried.

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"internship-portal/internal/bootstrap"
	"internship-portal/internal/queue"
	"internship-portal/internal/shared/config"
	"internship-portal/internal/shared/storage/db"
	"internship-portal/internal/shared/telemetry"
	"internship-portal/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	handle   queue.Handler
)

func initApp() {
	cfg := config.Load()
	app, err := bootstrap.Build(context.Background(), cfg, db.OptionsFromEnv(db.DefaultWorkerOptions(1)))
	if err != nil {
		initErr = err
		return
	}
	handle = workerproc.Handler(app.AnalysesService, "lambda")
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr.Error(), "records": len(event.Records)})
		return events.SQSEventResponse{BatchItemFailures: failAll(event)}, initErr
	}
	return processBatch(ctx, handle, event), nil
}

func processBatch(ctx context.Context, h queue.Handler, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		if err := h(ctx, []byte(record.Body)); err != nil && !errors.Is(err, queue.ErrDrop) {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func failAll(event events.SQSEvent) []events.SQSBatchItemFailure {
	failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
	for _, record := range event.Records {
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return failures
}

func main() {
	lambda.Start(handler)
}
