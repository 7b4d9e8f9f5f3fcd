// Package plugins implements the channel plugin framework (spec
// component C6): a small capability-set interface every data source
// satisfies, a compile-time registry populated by each channel
// subpackage's init(), and the lifecycle/routing/health-rollup glue
// that ties them to the host process.
package plugins

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/pickeld/lucy/internal/host"
)

// HealthStatus is one dependency's reachability, returned by
// ChannelPlugin.HealthCheck keyed by dependency name (e.g. "waha",
// "imap", "paperless_api").
type HealthStatus string

const (
	HealthOK       HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
)

// ChannelPlugin is the capability set every data-source integration
// satisfies. Discovery is compile-time: each channel subpackage
// registers an instance from its own init(), so there is no filesystem
// scan of a plugins directory to support at runtime.
type ChannelPlugin interface {
	Name() string
	DisplayName() string
	Icon() string
	Version() string
	Description() string

	// DefaultSettings lists the settings rows this plugin contributes
	// to C1 at enable time. RegisterDefaults only inserts missing
	// rows, so disabling and re-enabling a plugin preserves user edits.
	DefaultSettings() []PluginSetting

	// RoutePrefix is the path segment the registry mounts this
	// plugin's routes under: "/plugins/<prefix>".
	RoutePrefix() string

	// Initialize wires the plugin's own HTTP client, thread pools, and
	// model references from host. Called once when the plugin is
	// enabled; never called again until the next process restart if
	// the plugin is disabled and re-enabled (per spec, unmounting
	// routes is allowed to require a restart).
	Initialize(ctx context.Context, h *host.Host) error

	// Shutdown releases whatever Initialize acquired.
	Shutdown(ctx context.Context) error

	// HealthCheck reports the reachability of every external
	// dependency this plugin owns (WAHA, IMAP, the Paperless API, the
	// transcription backend).
	HealthCheck(ctx context.Context) map[string]HealthStatus

	// RegisterRoutes mounts the plugin's gin routes under group,
	// which is already scoped to "/plugins/<prefix>".
	RegisterRoutes(group *gin.RouterGroup)
}

// ScheduledSyncer is implemented by plugins that poll an external
// source on a cron schedule instead of (or in addition to) receiving
// webhooks — Gmail and Paperless both work this way.
type ScheduledSyncer interface {
	// SyncSchedule is the cron expression the registry runs
	// ScheduledSync on.
	SyncSchedule() string
	ScheduledSync(ctx context.Context, h *host.Host) error
}

// Transcriber is implemented by plugins whose content needs an
// async transcription pass (call recordings) before ingestion.
type Transcriber interface {
	Transcribe(ctx context.Context, h *host.Host, payload map[string]interface{}) error
}

// PluginSetting is one settings row a plugin wants registered at
// enable time, mirroring settings.Default's shape without importing
// the settings package's internal Default type name directly.
type PluginSetting struct {
	Key         string
	Value       string
	Category    string
	Type        string
	Description string
	EnvVar      string
}
