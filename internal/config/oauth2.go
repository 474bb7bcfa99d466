package config

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2Config is the optional client-credentials flow that lets a
// server rotate its API key transparently instead of relying on a
// static X-N8N-API-KEY. Neither the CLI nor the transfer manager calls
// LoadOAuth2 or HTTPClient, so every request internal/httpclient sends
// carries the static key.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// oauth2Keys returns the env-file/process-env key names for side's
// optional OAuth2 block.
func oauth2Keys(side string) (tokenURL, clientID, clientSecret, scopes string) {
	prefix := side + "_N8N_OAUTH2_"
	return prefix + "TOKEN_URL", prefix + "CLIENT_ID", prefix + "CLIENT_SECRET", prefix + "SCOPES"
}

// LoadOAuth2 reads SOURCE_N8N_OAUTH2_* / TARGET_N8N_OAUTH2_* from the
// merged file+environment values used by Load. It returns nil, nil when
// no OAuth2 block is configured for side (the common case).
func (l *Loader) LoadOAuth2(path, side string) (*OAuth2Config, error) {
	fileValues, err := readEnvFile(path)
	if err != nil {
		return nil, err
	}

	tokenURLKey, clientIDKey, clientSecretKey, scopesKey := oauth2Keys(side)
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileValues[key]
	}

	tokenURL := lookup(tokenURLKey)
	if tokenURL == "" {
		return nil, nil
	}

	cfg := &OAuth2Config{
		TokenURL:     tokenURL,
		ClientID:     lookup(clientIDKey),
		ClientSecret: lookup(clientSecretKey),
	}
	if s := lookup(scopesKey); s != "" {
		cfg.Scopes = strings.Split(s, ",")
	}
	return cfg, nil
}

// HTTPClient returns an *http.Client whose RoundTripper obtains and
// refreshes a bearer token from the client-credentials flow, for use in
// place of a static X-N8N-API-KEY header.
func (c *OAuth2Config) HTTPClient(ctx context.Context) *http.Client {
	cc := clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
	return cc.Client(ctx)
}

func readEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}
