// Package transfer implements the TransferManager orchestrator: the
// full transfer() and validate() pipelines, progress tracking, and
// cancellation, built on top of internal/httpclient and internal/plugin.
package transfer

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rakunlabs/transferctl/internal/apierr"
	"github.com/rakunlabs/transferctl/internal/httpclient"
	"github.com/rakunlabs/transferctl/internal/plugin"
	"github.com/rakunlabs/transferctl/internal/plugins/builtin"
	"github.com/rakunlabs/transferctl/internal/types"
)

// ManagerOptions configures construction. Logger and PluginRegistry, if
// supplied, are adopted (shared, never closed by the Manager); if nil,
// the Manager constructs and owns its own.
type ManagerOptions struct {
	Logger         *slog.Logger
	PluginRegistry *plugin.Registry

	// PluginsDir is scanned for third-party .so plugins at construction
	// time via PluginRegistry.Discover; empty disables discovery. It is
	// only used when PluginRegistry is nil and the Manager builds its own.
	PluginsDir string

	// ReportDir is where the in-tree reference reporter writes files when
	// the Manager registers the built-in plugins itself (PluginRegistry
	// nil). Defaults to "reports" when empty.
	ReportDir string

	HTTPMaxRetries           int
	HTTPTimeout              time.Duration
	HTTPMaxRequestsPerSecond int
}

// Manager is the orchestrator. A Manager runs one transfer()/validate()
// call at a time; concurrent calls on the same Manager are unsupported.
type Manager struct {
	config types.Config

	sourceClient *httpclient.Client
	targetClient *httpclient.Client

	logger       *slog.Logger
	ownsLogger   bool
	registry     *plugin.Registry
	ownsRegistry bool

	reportDir string

	mu              sync.Mutex
	status          types.RunStatus
	progress        types.ProgressSnapshot
	cancelRequested atomic.Bool
}

// New constructs a Manager bound to cfg, validating cfg and building the
// two HTTP clients.
func New(cfg types.Config, opts ManagerOptions) (*Manager, error) {
	if cfg.Source.URL == "" || cfg.Source.APIKey == "" || cfg.Target.URL == "" || cfg.Target.APIKey == "" {
		return nil, apierr.New(apierr.Validation, "transfer: config requires non-empty SOURCE and TARGET url/apiKey", nil)
	}

	logger := opts.Logger
	ownsLogger := false
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		ownsLogger = true
	}

	registry := opts.PluginRegistry
	ownsRegistry := false
	if registry == nil {
		registry = plugin.NewRegistry()
		ownsRegistry = true

		reportDir := opts.ReportDir
		if reportDir == "" {
			reportDir = "reports"
		}
		if err := builtin.RegisterAll(registry, reportDir); err != nil {
			return nil, fmt.Errorf("transfer: register built-in plugins: %w", err)
		}

		if opts.PluginsDir != "" {
			if _, err := registry.Discover(opts.PluginsDir); err != nil {
				return nil, fmt.Errorf("transfer: discover plugins: %w", err)
			}
		}
	}

	sourceClient, err := httpclient.New(httpclient.Options{
		BaseURL:              cfg.Source.URL,
		APIKey:               cfg.Source.APIKey,
		Logger:               logger,
		MaxRetries:           opts.HTTPMaxRetries,
		MaxRequestsPerSecond: opts.HTTPMaxRequestsPerSecond,
		Timeout:              opts.HTTPTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("transfer: build source client: %w", err)
	}

	targetClient, err := httpclient.New(httpclient.Options{
		BaseURL:              cfg.Target.URL,
		APIKey:               cfg.Target.APIKey,
		Logger:               logger,
		MaxRetries:           opts.HTTPMaxRetries,
		MaxRequestsPerSecond: opts.HTTPMaxRequestsPerSecond,
		Timeout:              opts.HTTPTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("transfer: build target client: %w", err)
	}

	reportDir := opts.ReportDir
	if reportDir == "" {
		reportDir = "reports"
	}

	return &Manager{
		config:       cfg,
		sourceClient: sourceClient,
		targetClient: targetClient,
		logger:       logger,
		ownsLogger:   ownsLogger,
		registry:     registry,
		ownsRegistry: ownsRegistry,
		reportDir:    reportDir,
		status:       types.StatusIdle,
	}, nil
}

// GetProgress returns a snapshot of the counters and lifecycle status.
func (m *Manager) GetProgress() types.ProgressSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.progress
	snap.Status = m.status
	return snap
}

// Cancel requests cancellation of the current run, reporting whether a
// run was actually in progress. It never aborts an in-flight HTTP call;
// it only prevents new work from starting.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	running := m.status == types.StatusRunning
	m.mu.Unlock()

	if running {
		m.cancelRequested.Store(true)
		m.logger.Warn("transfer: cancellation requested")
	}
	return running
}

// RegisterPlugin installs p into the Manager's registry.
func (m *Manager) RegisterPlugin(p plugin.Plugin) error {
	return m.registry.Register(p)
}

// GetPluginRegistry returns the registry this Manager uses.
func (m *Manager) GetPluginRegistry() *plugin.Registry { return m.registry }

// GetLogger returns the logger this Manager uses.
func (m *Manager) GetLogger() *slog.Logger { return m.logger }

// newRunID generates a sortable, time-ordered run correlation id.
func newRunID() string {
	return ulid.Make().String()
}

func (m *Manager) resetRun(total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = types.StatusRunning
	m.progress = types.ProgressSnapshot{Status: types.StatusRunning, Total: total}
	m.cancelRequested.Store(false)
}

func (m *Manager) setStatus(s types.RunStatus) {
	m.mu.Lock()
	m.status = s
	m.progress.Status = s
	m.mu.Unlock()
}

func (m *Manager) recordOutcome(status types.WorkflowStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress.Processed++
	switch status {
	case types.StatusTransferred:
		m.progress.Transferred++
	case types.StatusSkipped:
		m.progress.Skipped++
	case types.StatusFailed:
		m.progress.Failed++
	}
	if m.progress.Total > 0 {
		m.progress.Percentage = (m.progress.Processed * 100) / m.progress.Total
	}
}

func (m *Manager) isCancelled() bool {
	return m.cancelRequested.Load()
}
