package pelicula

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/ockendenjo/pelicula/internal/handler"
)

const (
	msgRequestReceived = "Solicitud recibida"
	msgCreated         = "Película creada exitosamente"
)

type createdBody struct {
	Pelicula Record `json:"pelicula"`
	Mensaje  string `json:"mensaje"`
}

type errorBody struct {
	Error string `json:"error"`
}

type APIHandler = handler.Handler[Event, events.APIGatewayProxyResponse]

// NewAPIHandler returns the creation handler for API Gateway and direct invocations.
// Request failures become 4xx/5xx responses; the invocation itself never fails.
func NewAPIHandler(creator *Creator) APIHandler {
	return func(ctx *handler.Context, event Event) (events.APIGatewayProxyResponse, error) {
		logger := ctx.GetLogger()
		logger.Info(msgRequestReceived, "event", event)

		start := time.Now()
		req, err := ParseEvent(event)
		if err != nil {
			return failure(ctx, event, err), nil
		}

		record, res, err := creator.Create(ctx, req)
		if err != nil {
			return failure(ctx, event, err), nil
		}

		ctx.Metric("PeliculasCreadas").Count()
		ctx.Metric("DuracionCreacion").Unit(handler.UnitMilliseconds).Value(time.Since(start).Milliseconds())
		logger.Info(msgCreated, "pelicula", record, "dynamodb_response", res)

		return jsonResponse(ctx, http.StatusOK, createdBody{Pelicula: record, Mensaje: msgCreated}), nil
	}
}

func failure(ctx *handler.Context, event Event, err error) events.APIGatewayProxyResponse {
	classified := Classify(err)
	msg := classified.ResponseMessage()

	ctx.Metric("ErroresCreacion").Dimension("tipo_error", classified.Kind.String()).Count()
	ctx.GetLogger().Error(classified.LogMessage(), "error_type", classified.TypeName(), "event", event)

	return jsonResponse(ctx, classified.Kind.StatusCode(), errorBody{Error: msg})
}

func jsonResponse(ctx *handler.Context, status int, body any) events.APIGatewayProxyResponse {
	b, err := json.Marshal(body)
	if err != nil {
		ctx.GetLogger().Error("Respuesta no serializable", "error", err.Error())
		status = http.StatusInternalServerError
		b = []byte(`{"error":"Error interno del servidor"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(b),
	}
}
