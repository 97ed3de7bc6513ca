package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"docviewer-backend/internal/bootstrap"
	"docviewer-backend/internal/shared/config"
)

var (
	initOnce sync.Once
	initErr  error
	adapter  *ginadapter.GinLambdaV2
)

// initApp builds the app once per execution environment. The rendering client
// is lazy, so a cold start never dials the rendering service.
func initApp() {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		initErr = err
		return
	}
	adapter = ginadapter.NewV2(app.Router)
}

func errorResponse(message string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":"` + message + `"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		return errorResponse("Service unavailable"), nil
	}
	if adapter == nil {
		return errorResponse("Router not initialized"), nil
	}
	return adapter.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
