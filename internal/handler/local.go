package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdaSdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

func IsLambda() bool {
	return os.Getenv("LAMBDA_TASK_ROOT") != ""
}

const (
	envKeyDebugPort    = "LAMBDA_DEBUG_PORT"
	envKeyFunctionName = "LAMBDA_FUNCTION_NAME"
	envKeyEnvFile      = "LAMBDA_ENV_FILE"
)

func getLocalAddr() string {
	debugPort := os.Getenv(envKeyDebugPort)
	if debugPort != "" {
		return ":" + debugPort
	}
	return ":8000"
}

func startLambdaLocally[T any, U any](ctx context.Context, cfg aws.Config, getHandler func(awsConfig aws.Config) Handler[T, U]) {
	errLog := log.New(os.Stderr, "", log.LstdFlags)

	if envFile := os.Getenv(envKeyEnvFile); envFile != "" {
		fmt.Printf("Loading environment variables from file: %s\n", envFile)
		vars, err := loadEnvFile(envFile)
		if err != nil {
			errLog.Println(err)
			os.Exit(1)
		}
		setEnvOverrides(vars)
	} else if funcName := getLambdaFunctionName(); funcName != "" {
		fmt.Printf("Loading environment variables from lambda: %s\n", funcName)
		vars, err := loadFunctionEnv(ctx, lambdaSdk.NewFromConfig(cfg), funcName)
		if err != nil {
			errLog.Println(err)
			errLog.Println("Ensure the AWS_PROFILE is set in the run configuration")
			os.Exit(1)
		}
		setEnvOverrides(vars)
	} else {
		fmt.Println("No function name provided - any environment variables will need to be manually set")
	}

	handlerFn := getHandler(cfg)
	addr := getLocalAddr()

	fmt.Printf("Starting server http://localhost%s\n", addr)
	fmt.Printf("POST requests to http://localhost%s/endpoint using command:\n\n", addr)
	fmt.Printf("curl -X POST -H 'Content-Type: application/json' -d @payload.json http://localhost%s/endpoint\n", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           newLocalRouter(addr, handlerFn),
		ReadHeaderTimeout: 3 * time.Second,
	}
	err := server.ListenAndServe()
	if err != nil {
		var bindErr *net.OpError
		if errors.As(err, &bindErr) && strings.Contains(bindErr.Error(), "address already in use") {
			portOnly := strings.Replace(addr, ":", "", 1)
			err = fmt.Errorf("the port %s is already in use. Set the %s environment variable to use a different port", portOnly, envKeyDebugPort)
		}
		panic(err)
	}
}

type functionConfigurationGetter interface {
	GetFunctionConfiguration(ctx context.Context, params *lambdaSdk.GetFunctionConfigurationInput, optFns ...func(*lambdaSdk.Options)) (*lambdaSdk.GetFunctionConfigurationOutput, error)
}

func loadFunctionEnv(ctx context.Context, client functionConfigurationGetter, funcName string) (map[string]string, error) {
	res, err := client.GetFunctionConfiguration(ctx, &lambdaSdk.GetFunctionConfigurationInput{
		FunctionName: aws.String(funcName),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read environment vars for lambda function %s: %w", funcName, err)
	}
	if res.Environment == nil {
		return map[string]string{}, nil
	}
	return res.Environment.Variables, nil
}

// loadEnvFile reads a flat YAML mapping of variable names to values.
func loadEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	vars := map[string]string{}
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env file %s: %w", path, err)
	}
	return vars, nil
}

func newLocalRouter[T any, U any](addr string, handlerFn Handler[T, U]) http.Handler {
	r := chi.NewRouter()
	r.Get("/", buildHandleRoot(addr))
	r.Post("/endpoint", buildHandleLocalEndpoint(handlerFn))
	return r
}

func buildHandleRoot(addr string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lines := []string{
			"Save the JSON payload to a file - e.g. payload.json",
			fmt.Sprintf("curl -X POST -H \"Content-Type: application/json\" -d @payload.json http://localhost%s/endpoint", addr),
		}

		_, wErr := w.Write([]byte(strings.Join(lines, "\n\n")))
		if wErr != nil {
			logger := log.New(os.Stderr, "", 0)
			logger.Println(wErr)
		}
	}
}

func buildHandleLocalEndpoint[T any, U any](handler Handler[T, U]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		handleError := func(err error) {
			w.WriteHeader(http.StatusInternalServerError)
			_, wErr := w.Write([]byte(err.Error()))
			if wErr != nil {
				logger := log.New(os.Stderr, "", 0)
				logger.Println(wErr)
			}
		}

		bytes, err := io.ReadAll(r.Body)
		if err != nil {
			handleError(err)
			return
		}

		var input T
		err = json.Unmarshal(bytes, &input)
		if err != nil {
			handleError(err)
			return
		}

		//Some lambda handlers require a context with deadline
		ctx, cancel := context.WithDeadline(r.Context(), time.Now().Add(1*time.Hour))
		defer cancel()

		res, err := withLogger(handler, nil)(ctx, input)
		if err != nil {
			handleError(err)
			return
		}

		outputBytes, err := json.Marshal(res)
		if err != nil {
			handleError(err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, wErr := w.Write(outputBytes)
		if wErr != nil {
			logger := log.New(os.Stderr, "", 0)
			logger.Println(wErr)
		}
	}
}

func getLambdaFunctionName() string {
	trimAndRemoveLogPrefix := func(s string) string {
		return strings.TrimPrefix(strings.TrimSpace(s), "/aws/lambda/")
	}

	envFuncName := os.Getenv(envKeyFunctionName)
	if envFuncName != "" {
		return trimAndRemoveLogPrefix(envFuncName)
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("Enter lambda function name, log group name (or re-run with env var %s set): ", envKeyFunctionName)
	text, _ := reader.ReadString('\n')

	return trimAndRemoveLogPrefix(text)
}
