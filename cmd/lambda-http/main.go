package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http
//
// Lambda cannot run the in-process memory consumer, so QUEUE_BACKEND must be sqs
// or amqp and a worker must consume the queue.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"internship-portal/internal/bootstrap"
	"internship-portal/internal/shared/config"
	"internship-portal/internal/shared/metrics"
	"internship-portal/internal/shared/server/respond"
	"internship-portal/internal/shared/storage/db"
	"internship-portal/internal/shared/telemetry"
)

var (
	initOnce  sync.Once
	initErr   error
	ginLambda *ginadapter.GinLambdaV2
)

func initApp() {
	cfg := config.Load()
	if cfg.QueueBackend == "memory" {
		initErr = fmt.Errorf("QUEUE_BACKEND=memory is not supported on Lambda")
		return
	}
	metrics.MustRegister()
	app, err := bootstrap.Build(context.Background(), cfg, db.OptionsFromEnv(db.DefaultWorkerOptions(1)))
	if err != nil {
		initErr = err
		return
	}
	ginLambda = ginadapter.NewV2(app.Router)
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		return unavailable(req, initErr), nil
	}
	return ginLambda.ProxyWithContext(ctx, req)
}

// unavailable answers every request with 503 while bootstrap keeps failing. The
// sync.Once means a cold start with bad config stays broken until the next cold start.
func unavailable(req events.APIGatewayV2HTTPRequest, cause error) events.APIGatewayV2HTTPResponse {
	telemetry.Error("lambda.bootstrap_failed", map[string]any{
		"error":      cause.Error(),
		"request_id": req.RequestContext.RequestID,
		"route":      req.RouteKey,
	})
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
		Code:      "bootstrap_failed",
		Message:   "service unavailable",
		RequestID: req.RequestContext.RequestID,
	}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	lambda.Start(handler)
}
