package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"internship-portal/internal/shared/server/respond"
)

func TestUnavailableUsesErrorEnvelope(t *testing.T) {
	req := events.APIGatewayV2HTTPRequest{RouteKey: "GET /api/v1/health"}
	req.RequestContext.RequestID = "apigw-1"

	resp := unavailable(req, errors.New("DATABASE_URL is empty"))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var body respond.ErrorResponse
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "bootstrap_failed" || body.Error.RequestID != "apigw-1" {
		t.Fatalf("unexpected body %s", resp.Body)
	}
}

func TestInitAppRejectsMemoryQueue(t *testing.T) {
	t.Setenv("QUEUE_BACKEND", "memory")
	initErr = nil
	initApp()
	if initErr == nil {
		t.Fatalf("expected memory backend to be rejected")
	}
}
