package handler

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/ratelimit"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
)

type Builder[T any, U any] struct {
	ctx        context.Context
	awsConfig  aws.Config
	getHandler func(awsConfig aws.Config) Handler[T, U]
}

// Build loads the AWS config. getHandler is called once per process, so SDK clients
// created in it are shared by every invocation.
func Build[T any, U any](getHandler func(awsConfig aws.Config) Handler[T, U]) *Builder[T, U] {
	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(so *retry.StandardOptions) {
			//Use a large number so that the SDK client shouldn't run out of retry attempts
			//Note that this is not the number of times it will retry per API call but the number of times
			//it might retry during the client lifetime
			so.RateLimiter = ratelimit.NewTokenRateLimit(1_000_000)
		})
	}))
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	return &Builder[T, U]{
		ctx:        ctx,
		awsConfig:  cfg,
		getHandler: getHandler,
	}
}

func (b *Builder[T, U]) Start() {
	if IsLambda() {
		//Instrument the AWS SDK - this needs to happen before any service clients are created
		awsv2.AWSV2Instrumentor(&b.awsConfig.APIOptions)
		handlerFn := b.getHandler(b.awsConfig)
		lambda.Start(withLogger(handlerFn, nil))
		return
	}

	startLambdaLocally(b.ctx, b.awsConfig, b.getHandler)
}

// BuildAndStart configures a logger, instruments the AWS SDK with X-Ray, and then starts the lambda
func BuildAndStart[T any, U any](getHandler func(awsConfig aws.Config) Handler[T, U]) {
	Build(getHandler).Start()
}
