// Package config loads SOURCE/TARGET server configuration from an env
// file plus the process environment, validates it, and probes
// reachability of either server. Values are kept as given; URLs and keys
// are not trimmed or otherwise normalized.
//
// The wire format is a flat "KEY=value" file, read with
// github.com/joho/godotenv rather than a nested YAML/struct config.
package config

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rakunlabs/transferctl/internal/apierr"
	"github.com/rakunlabs/transferctl/internal/types"
)

const (
	keySourceURL    = "SOURCE_N8N_URL"
	keySourceAPIKey = "SOURCE_N8N_API_KEY"
	keyTargetURL    = "TARGET_N8N_URL"
	keyTargetAPIKey = "TARGET_N8N_API_KEY"
)

var requiredKeys = []string{keySourceURL, keySourceAPIKey, keyTargetURL, keyTargetAPIKey}

const exampleFile = `# example transfer.env
SOURCE_N8N_URL=https://source.example.com
SOURCE_N8N_API_KEY=n8n_api_xxxxxxxxxxxxxxxxxxxxxxxxxxxxxx
TARGET_N8N_URL=https://target.example.com
TARGET_N8N_API_KEY=n8n_api_yyyyyyyyyyyyyyyyyyyyyyyyyyyyyy
`

// Loader reads and validates SOURCE/TARGET configuration and can probe
// connectivity to either server ahead of a run.
type Loader struct {
	client *http.Client
}

// NewLoader constructs a Loader used for connectivity probes.
func NewLoader() *Loader {
	return &Loader{client: &http.Client{}}
}

// Load reads path (an env file), merges it with the process environment
// (process environment wins), and validates the result.
func (l *Loader) Load(path string) (*types.Config, error) {
	fileValues, err := godotenv.Read(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, apierr.New(apierr.Validation, fmt.Sprintf("read config file %q", path), err)
	}
	if fileValues == nil {
		fileValues = map[string]string{}
	}

	merged := make(map[string]string, len(requiredKeys))
	for _, k := range requiredKeys {
		if v, ok := os.LookupEnv(k); ok {
			merged[k] = v
			continue
		}
		merged[k] = fileValues[k]
	}

	return validate(merged)
}

func validate(values map[string]string) (*types.Config, error) {
	var offending []string

	checkURL := func(key string) {
		v := values[key]
		if v == "" {
			offending = append(offending, key)
			return
		}
		u, err := url.Parse(v)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			offending = append(offending, key)
		}
	}
	checkKey := func(key string) {
		if strings.TrimSpace(values[key]) == "" {
			offending = append(offending, key)
		}
	}

	checkURL(keySourceURL)
	checkKey(keySourceAPIKey)
	checkURL(keyTargetURL)
	checkKey(keyTargetAPIKey)

	if len(offending) > 0 {
		sort.Strings(offending)
		msg := fmt.Sprintf("invalid or missing configuration field(s): %s\n\nexample file:\n%s",
			strings.Join(offending, ", "), exampleFile)
		return nil, apierr.New(apierr.Validation, msg, nil)
	}

	cfg := &types.Config{
		Source: types.ServerConfig{URL: values[keySourceURL], APIKey: values[keySourceAPIKey]},
		Target: types.ServerConfig{URL: values[keyTargetURL], APIKey: values[keyTargetAPIKey]},
	}

	return cfg, nil
}

// Warnings returns non-fatal observations about cfg, e.g. SOURCE and
// TARGET pointing at the same URL.
func Warnings(cfg *types.Config) []string {
	var warnings []string
	if cfg.Source.URL == cfg.Target.URL {
		warnings = append(warnings, "SOURCE and TARGET point at the same URL")
	}
	return warnings
}

// TestConnectivity probes one server's /healthz endpoint with the
// configured API key. Any status in [200,400) is success. It never
// retries.
func (l *Loader) TestConnectivity(ctx context.Context, side types.Side, srv types.ServerConfig, timeout time.Duration) types.ConnectivityResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(srv.URL, "/")+"/healthz", nil)
	if err != nil {
		return types.ConnectivityResult{Side: side, Success: false, Error: err.Error()}
	}
	req.Header.Set("X-N8N-API-KEY", srv.APIKey)

	start := time.Now()
	resp, err := l.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return types.ConnectivityResult{Side: side, Success: false, Error: fmt.Sprintf("timeout after %dms", timeout.Milliseconds())}
		}
		return types.ConnectivityResult{Side: side, Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	success := resp.StatusCode >= 200 && resp.StatusCode < 400
	result := types.ConnectivityResult{
		Side:           side,
		Success:        success,
		StatusCode:     resp.StatusCode,
		ResponseTimeMs: elapsed.Milliseconds(),
	}
	if !success {
		result.Error = fmt.Sprintf("unexpected status code %d", resp.StatusCode)
	}
	return result
}
