package plugins

import (
	"context"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/pickeld/lucy/internal/host"
	"github.com/pickeld/lucy/internal/logger"
	"github.com/pickeld/lucy/internal/settings"
)

// registered holds every ChannelPlugin a channel subpackage added from
// its own init(), before a Registry decides which of them are
// enabled. Package-level because init() runs before any Registry
// exists to register into.
var registered []ChannelPlugin

// Register adds p to the compile-time plugin catalog. Call this from
// a channel subpackage's init() — never at request time, and never
// from a filesystem scan.
func Register(p ChannelPlugin) {
	registered = append(registered, p)
}

// Registry owns the lifecycle of every enabled plugin: which ones the
// settings store says to run, their route mounts, their cron jobs,
// and their aggregated health.
type Registry struct {
	host *host.Host
	cron *cron.Cron

	mu      sync.RWMutex
	enabled map[string]ChannelPlugin
}

// NewRegistry builds a Registry scoped to h. Call LoadEnabled once
// booted to actually initialize the plugins named in the settings
// store.
func NewRegistry(h *host.Host) *Registry {
	return &Registry{
		host:    h,
		cron:    cron.New(),
		enabled: make(map[string]ChannelPlugin),
	}
}

// pluginEnabledKey is the settings key gating whether a given channel
// plugin's Initialize runs on boot.
func pluginEnabledKey(name string) string {
	return fmt.Sprintf("plugin.%s.enabled", name)
}

// LoadEnabled walks the compile-time catalog, registers each plugin's
// default settings rows (only-if-missing, so re-enabling preserves
// prior edits), and initializes every plugin the settings store marks
// enabled. A plugin whose Initialize fails is logged and skipped
// rather than aborting boot for the rest.
func (r *Registry) LoadEnabled(ctx context.Context) error {
	for _, p := range registered {
		defaults := make([]settings.Default, 0, len(p.DefaultSettings())+1)
		defaults = append(defaults, settings.Default{
			Key: pluginEnabledKey(p.Name()), Value: "false",
			Category: "plugin", Type: settings.TypeBool,
			Description: fmt.Sprintf("enable the %s channel plugin", p.DisplayName()),
		})
		for _, s := range p.DefaultSettings() {
			defaults = append(defaults, settings.Default{
				Key: s.Key, Value: s.Value, Category: s.Category,
				Type: settings.Type(s.Type), Description: s.Description, EnvVar: s.EnvVar,
			})
		}
		if err := r.host.Settings.RegisterDefaults(ctx, defaults); err != nil {
			return fmt.Errorf("registering %s defaults: %w", p.Name(), err)
		}

		if !r.host.Settings.GetBool(ctx, pluginEnabledKey(p.Name())) {
			continue
		}
		if err := p.Initialize(ctx, r.host); err != nil {
			logger.ErrorWithFields(ctx, err, map[string]interface{}{
				"component": "plugins", "plugin": p.Name(),
			})
			continue
		}

		r.mu.Lock()
		r.enabled[p.Name()] = p
		r.mu.Unlock()

		if syncer, ok := p.(ScheduledSyncer); ok {
			name := p.Name()
			if _, err := r.cron.AddFunc(syncer.SyncSchedule(), func() {
				r.runScheduledSync(name)
			}); err != nil {
				return fmt.Errorf("scheduling %s sync: %w", name, err)
			}
		}
	}
	r.cron.Start()
	return nil
}

// runScheduledSync is the cron callback body, factored out so
// RunScheduledSync (the on-demand path driven by a dispatched task)
// shares the same logging behavior as the timer-driven path.
func (r *Registry) runScheduledSync(name string) {
	ctx := context.Background()
	if err := r.RunScheduledSync(ctx, name); err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{
			"component": "plugins", "plugin": name, "action": "scheduled_sync",
		})
	}
}

// RunScheduledSync satisfies taskrt.PluginDispatcher: it lets a
// dispatched plugin.scheduled_sync task trigger an out-of-band sync
// in addition to the plugin's own cron schedule.
func (r *Registry) RunScheduledSync(ctx context.Context, name string) error {
	p, ok := r.plugin(name)
	if !ok {
		return fmt.Errorf("plugin %q not enabled", name)
	}
	syncer, ok := p.(ScheduledSyncer)
	if !ok {
		return fmt.Errorf("plugin %q does not support scheduled sync", name)
	}
	return syncer.ScheduledSync(ctx, r.host)
}

// Transcribe satisfies taskrt.PluginDispatcher, routing a
// media.transcribe task to whichever enabled plugin's payload it
// names via a "plugin" key.
func (r *Registry) Transcribe(ctx context.Context, payload map[string]interface{}) error {
	name, _ := payload["plugin"].(string)
	p, ok := r.plugin(name)
	if !ok {
		return fmt.Errorf("plugin %q not enabled", name)
	}
	transcriber, ok := p.(Transcriber)
	if !ok {
		return fmt.Errorf("plugin %q does not support transcription", name)
	}
	return transcriber.Transcribe(ctx, r.host, payload)
}

func (r *Registry) plugin(name string) (ChannelPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.enabled[name]
	return p, ok
}

// MountRoutes mounts every enabled plugin's routes under
// "/plugins/<prefix>". WhatsApp additionally gets a bare "/webhook"
// alias, the path the original single-channel deployment used before
// multiple channels existed.
func (r *Registry) MountRoutes(rg *gin.Engine) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, p := range r.enabled {
		group := rg.Group("/plugins/" + p.RoutePrefix())
		p.RegisterRoutes(group)
		if name == "whatsapp" {
			rg.POST("/webhook", func(c *gin.Context) {
				c.Request.URL.Path = "/plugins/" + p.RoutePrefix() + "/webhook"
				rg.HandleContext(c)
			})
		}
	}
}

// HealthRollup aggregates HealthCheck across every enabled plugin,
// namespacing each dependency name by its owning plugin so two
// plugins reporting on a same-named dependency ("api") don't collide.
func (r *Registry) HealthRollup(ctx context.Context) map[string]HealthStatus {
	out := make(map[string]HealthStatus)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, p := range r.enabled {
		for dep, status := range p.HealthCheck(ctx) {
			out[name+"."+dep] = status
		}
	}
	return out
}

// Shutdown stops the cron scheduler and every enabled plugin.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.cron.Stop()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.enabled {
		if err := p.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
