package handler

import (
	"fmt"
	"maps"
	"os"
	"strconv"
	"strings"
)

// envVarMap holds values loaded in local mode. They take precedence over the process environment.
var envVarMap = map[string]string{}

func setEnvOverrides(vars map[string]string) {
	envVarMap = maps.Clone(vars)
}

func GetEnv(key string) string {
	val, found := envVarMap[key]
	if found {
		return val
	}
	return os.Getenv(key)
}

// LookupEnv returns the value for key and whether it is set to something other than whitespace.
func LookupEnv(key string) (string, bool) {
	val := strings.TrimSpace(GetEnv(key))
	return val, val != ""
}

func MustGetEnv(key string) string {
	val, ok := LookupEnv(key)
	if !ok {
		panic(fmt.Errorf("environment variable for '%s' has not been set", key))
	}
	return val
}

// GetEnvBool returns false when the variable is unset or not a valid boolean.
func GetEnvBool(key string) bool {
	v, ok := LookupEnv(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
