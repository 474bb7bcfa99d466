// Package types defines the data model shared by the config loader, the
// HTTP clients, the plugin contracts, and the transfer manager: workflows,
// transfer options, and the summaries/reports a run produces.
package types

import "time"

// Tag is a categorical label attached to a Workflow. Uniqueness is by
// Name within a single workflow.
type Tag struct {
	ID        string     `json:"id,omitempty"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Node is one vertex of a workflow graph. Parameters and Credentials are
// opaque to the engine; it never interprets their contents beyond
// presence checks (skipCredentials, pre-validation).
type Node struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	TypeVersion float64        `json:"typeVersion"`
	Position    [2]float64     `json:"position"`
	Parameters  map[string]any `json:"parameters"`
	Credentials map[string]any `json:"credentials,omitempty"`
}

// HasCredentials reports whether the node carries a non-empty credentials
// mapping, per the skipCredentials gate in the transfer pipeline.
func (n Node) HasCredentials() bool {
	return len(n.Credentials) > 0
}

// Workflow is an opaque-to-the-engine automation graph. Connections is
// preserved verbatim: the engine never inspects its internal shape.
type Workflow struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Nodes       []Node         `json:"nodes"`
	Connections map[string]any `json:"connections"`
	Tags        []Tag          `json:"tags,omitempty"`
	Active      bool           `json:"active"`
	Settings    map[string]any `json:"settings,omitempty"`
	VersionID   string         `json:"versionId,omitempty"`
	CreatedAt   *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
}

// HasAnyTag reports whether the workflow carries at least one of the
// given tag names.
func (w Workflow) HasAnyTag(names []string) bool {
	if len(w.Tags) == 0 || len(names) == 0 {
		return false
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	for _, t := range w.Tags {
		if _, ok := want[t.Name]; ok {
			return true
		}
	}
	return false
}

// HasCredentials reports whether any node in the workflow carries a
// non-empty credentials mapping.
func (w Workflow) HasCredentials() bool {
	for _, n := range w.Nodes {
		if n.HasCredentials() {
			return true
		}
	}
	return false
}

// Filters selects a subset of workflows fetched from SOURCE. All set
// filters are AND-composed; within a filter, membership is OR.
type Filters struct {
	WorkflowIDs   []string `json:"workflowIds,omitempty"`
	WorkflowNames []string `json:"workflowNames,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	ExcludeTags   []string `json:"excludeTags,omitempty"`
}

// TransferOptions configures one transfer() or validate() invocation.
// Defaults are applied and the whole struct validated by
// transfer.ValidateOptions before a run starts.
type TransferOptions struct {
	Filters *Filters `json:"filters,omitempty"`
	DryRun  bool     `json:"dryRun"`
	// Parallelism is a pointer so ValidateOptions can tell "field not
	// supplied" (nil, defaulted to 3) apart from "caller passed 0"
	// (rejected: parallelism must be at least 1).
	Parallelism     *int     `json:"parallelism,omitempty"`
	Deduplicator    string   `json:"deduplicator"`
	Validators      []string `json:"validators"`
	Reporters       []string `json:"reporters"`
	SkipCredentials bool     `json:"skipCredentials"`
}

// DefaultTransferOptions returns the built-in defaults. Callers normally
// get this via transfer.ValidateOptions, which fills in zero-valued
// fields on a caller-supplied TransferOptions.
func DefaultTransferOptions() TransferOptions {
	defaultParallelism := 3
	return TransferOptions{
		Parallelism:  &defaultParallelism,
		Deduplicator: "standard-deduplicator",
		Validators:   []string{"integrity-validator"},
		Reporters:    []string{"markdown-reporter"},
	}
}

// WorkflowStatus is the terminal outcome of one workflow's pipeline run.
type WorkflowStatus string

const (
	StatusTransferred WorkflowStatus = "transferred"
	StatusSkipped     WorkflowStatus = "skipped"
	StatusFailed      WorkflowStatus = "failed"
)

// WorkflowResult is one entry of TransferSummary.Workflows.
type WorkflowResult struct {
	Name      string         `json:"name"`
	SourceID  string         `json:"sourceId"`
	TargetID  string         `json:"targetId,omitempty"`
	Status    WorkflowStatus `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	Error     string         `json:"error,omitempty"`
	Simulated bool           `json:"simulated,omitempty"`
}

// TransferSummary is the result of one transfer() call.
type TransferSummary struct {
	RunID       string           `json:"runId"`
	Total       int              `json:"total"`
	Transferred int              `json:"transferred"`
	Skipped     int              `json:"skipped"`
	Failed      int              `json:"failed"`
	Processed   int              `json:"processed"`
	DurationMs  int64            `json:"duration_ms"`
	Workflows   []WorkflowResult `json:"workflows"`
	StartTime   time.Time        `json:"startTime"`
	EndTime     time.Time        `json:"endTime"`
	SourceURL   string           `json:"sourceUrl"`
	TargetURL   string           `json:"targetUrl"`
	DryRun      bool             `json:"dryRun"`
	Cancelled   bool             `json:"cancelled"`
	Reports     []ReportFile     `json:"reports"`
}

// Severity of one ValidationIssue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Phase identifies when a validator ran relative to the transfer pipeline.
// "post" is named by the taxonomy but never invoked; only "pre" and
// "standalone" are ever emitted.
type Phase string

const (
	PhasePre        Phase = "pre"
	PhasePost       Phase = "post"
	PhaseStandalone Phase = "standalone"
)

// Issue is one message produced by a single validator against a single
// workflow.
type Issue struct {
	Validator string   `json:"validator"`
	Phase     Phase    `json:"phase"`
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
}

// WorkflowIssues groups every Issue raised against one workflow.
type WorkflowIssues struct {
	Workflow   string  `json:"workflow"`
	WorkflowID string  `json:"workflowId"`
	Issues     []Issue `json:"issues"`
}

// ValidationResult is the result of a standalone validate() call.
type ValidationResult struct {
	Total      int              `json:"total"`
	Valid      int              `json:"valid"`
	Invalid    int              `json:"invalid"`
	Errors     int              `json:"errors"`
	Warnings   int              `json:"warnings"`
	Issues     []WorkflowIssues `json:"issues"`
	Validators []string         `json:"validators"`
}

// ReportFormat is inferred from a reporter's registered name.
type ReportFormat string

const (
	FormatMarkdown ReportFormat = "markdown"
	FormatJSON     ReportFormat = "json"
	FormatCSV      ReportFormat = "csv"
	FormatUnknown  ReportFormat = "unknown"
)

// ReportFile is one reporter's output, returned after a transfer run.
type ReportFile struct {
	Reporter string       `json:"reporter"`
	Path     string       `json:"path"`
	Format   ReportFormat `json:"format"`
}

// RunStatus is the TransferManager's lifecycle state, exposed via
// GetProgress().
type RunStatus string

const (
	StatusIdle      RunStatus = "IDLE"
	StatusRunning   RunStatus = "RUNNING"
	StatusCompleted RunStatus = "COMPLETED"
	StatusCancelled RunStatus = "CANCELLED"
	StatusRunFailed RunStatus = "FAILED"
)

// ProgressSnapshot is a point-in-time view of an in-flight or completed
// run, returned by TransferManager.GetProgress().
type ProgressSnapshot struct {
	Status      RunStatus `json:"status"`
	Total       int       `json:"total"`
	Processed   int       `json:"processed"`
	Transferred int       `json:"transferred"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Percentage  int       `json:"percentage"`
}

// ServerConfig is one server's connection details.
type ServerConfig struct {
	URL    string `cfg:"url" json:"url"`
	APIKey string `cfg:"api_key" json:"apiKey" log:"-"`
}

// Config is the loaded, validated SOURCE/TARGET pair.
type Config struct {
	Source ServerConfig `cfg:"source" json:"source"`
	Target ServerConfig `cfg:"target" json:"target"`
}

// Side identifies which server an operation targets.
type Side string

const (
	SideSource Side = "SOURCE"
	SideTarget Side = "TARGET"
)

// ConnectivityResult is the outcome of ConfigLoader.TestConnectivity.
type ConnectivityResult struct {
	Side           Side   `json:"side"`
	Success        bool   `json:"success"`
	StatusCode     int    `json:"statusCode,omitempty"`
	ResponseTimeMs int64  `json:"responseTime_ms,omitempty"`
	Error          string `json:"error,omitempty"`
}

// HTTPClientStats are request counters exposed by HttpClient.GetStats.
type HTTPClientStats struct {
	TotalRequests int64 `json:"totalRequests"`
	Successful    int64 `json:"successful"`
	Failed        int64 `json:"failed"`
	Retried       int64 `json:"retried"`
	RateLimited   int64 `json:"rateLimited"`
}

// PluginKind is one of the three plugin categories the registry indexes.
type PluginKind string

const (
	KindDeduplicator PluginKind = "deduplicator"
	KindValidator    PluginKind = "validator"
	KindReporter     PluginKind = "reporter"
)

// RegistryStats summarizes a PluginRegistry's contents.
type RegistryStats struct {
	Total    int                `json:"total"`
	ByKind   map[PluginKind]int `json:"byKind"`
	Enabled  int                `json:"enabled"`
	Disabled int                `json:"disabled"`
}

// DiscoverResult is returned by PluginRegistry.Discover: loading failures
// for individual files are collected here, never thrown.
type DiscoverResult struct {
	Total   int      `json:"total"`
	Loaded  int      `json:"loaded"`
	Failed  int      `json:"failed"`
	Plugins []string `json:"plugins"`
	Errors  []string `json:"errors"`
}
