package config

import (
	"context"
	"os"
	"strings"
	"unicode"
)

// EnvVarProvider resolves parameter paths from the process environment. It
// backs APP_ENV=local, so the same *_SSM_PARAM pointers a deployed stack uses
// can be satisfied from a shell or .env file: the pointer
// DATABASE_URL_SSM_PARAM=/dev/outreach/database_url reads
// DEV_OUTREACH_DATABASE_URL.
type EnvVarProvider struct {
	lookupEnv func(string) (string, bool)
}

func NewEnvVarProvider() *EnvVarProvider {
	return &EnvVarProvider{lookupEnv: os.LookupEnv}
}

func (p *EnvVarProvider) GetParametersBatch(_ context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if val, ok := p.lookupEnv(ParamEnvName(key)); ok {
			result[key] = val
		}
	}
	return result, nil
}

// ParamEnvName maps a parameter path to the variable EnvVarProvider reads:
// separators become underscores and letters are upper-cased.
func ParamEnvName(path string) string {
	name := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, path)
	return strings.Trim(name, "_")
}
