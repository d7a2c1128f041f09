package resolver

import "os"

// EnvResolver reads environment variables. A missing variable resolves to "", the way
// os.Expand treats it.
//
//	address: ${PORT}
//	address: ${env:PORT}
type EnvResolver struct{}

func NewEnvResolver() *EnvResolver {
	return &EnvResolver{}
}

func (e *EnvResolver) Resolve(key string) (string, error) {
	return os.Getenv(key), nil
}

func (e *EnvResolver) Name() string {
	return "Environment"
}
