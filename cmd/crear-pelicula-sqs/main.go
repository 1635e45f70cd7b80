package main

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/ockendenjo/pelicula/internal/handler"
	"github.com/ockendenjo/pelicula/internal/pelicula"
	"github.com/ockendenjo/pelicula/internal/store"
)

func main() {
	handler.BuildAndStart(func(awsConfig aws.Config) handler.SQSHandler {
		client := store.NewClient(awsConfig, handler.GetEnv("DYNAMODB_ENDPOINT"))
		return pelicula.NewSQSHandler(pelicula.NewCreator(store.New(client)))
	})
}
