package config

import "context"

// SecretProvider resolves parameter paths to plaintext values. SSMProvider
// serves deployed environments; EnvVarProvider serves APP_ENV=local.
type SecretProvider interface {
	// GetParametersBatch returns a map of key -> value for every key it could
	// resolve. Missing keys are omitted rather than reported as errors.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
