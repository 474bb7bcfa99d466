package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"
	"sync"

	"github.com/rakunlabs/transferctl/internal/pluginconfig"
	"github.com/rakunlabs/transferctl/internal/types"
)

// Registry indexes plugins by name (case-insensitive lookup, exact key
// preserved) and by kind. It owns every plugin registered into it.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Plugin // lookup key is strings.ToLower(name)
	names  map[string]string // lookup key -> original-cased name
	byKind map[types.PluginKind][]Plugin
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Plugin),
		names:  make(map[string]string),
		byKind: make(map[types.PluginKind][]Plugin),
	}
}

// Register validates that p satisfies the kind-appropriate interface,
// rejects duplicate names, and indexes it by name and kind.
func (r *Registry) Register(p Plugin) error {
	if p.Name() == "" {
		return fmt.Errorf("plugin: registered plugin has empty name")
	}

	switch p.Kind() {
	case types.KindDeduplicator:
		if _, ok := p.(Deduplicator); !ok {
			return fmt.Errorf("plugin %q: declares kind deduplicator but does not implement Deduplicator", p.Name())
		}
	case types.KindValidator:
		if _, ok := p.(Validator); !ok {
			return fmt.Errorf("plugin %q: declares kind validator but does not implement Validator", p.Name())
		}
	case types.KindReporter:
		if _, ok := p.(Reporter); !ok {
			return fmt.Errorf("plugin %q: declares kind reporter but does not implement Reporter", p.Name())
		}
	default:
		return fmt.Errorf("plugin %q: unknown kind %q", p.Name(), p.Kind())
	}

	key := strings.ToLower(p.Name())

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[key]; exists {
		return fmt.Errorf("plugin: a plugin named %q is already registered", p.Name())
	}

	r.byName[key] = p
	r.names[key] = p.Name()
	r.byKind[p.Kind()] = append(r.byKind[p.Kind()], p)
	return nil
}

// Unregister removes a plugin by name, reporting whether it removed
// anything.
func (r *Registry) Unregister(name string) bool {
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byName[key]
	if !ok {
		return false
	}
	delete(r.byName, key)
	delete(r.names, key)

	kindList := r.byKind[p.Kind()]
	for i, existing := range kindList {
		if existing == p {
			r.byKind[p.Kind()] = append(kindList[:i], kindList[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the plugin registered under name, optionally constrained
// to kind, or nil if absent or kind-mismatched.
func (r *Registry) Get(name string, kind ...types.PluginKind) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil
	}
	if len(kind) > 0 && p.Kind() != kind[0] {
		return nil
	}
	return p
}

// GetAll returns every registered plugin.
func (r *Registry) GetAll() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Plugin, 0, len(r.byName))
	for _, p := range r.byName {
		all = append(all, p)
	}
	return all
}

// ListByType returns every plugin of the given kind.
func (r *Registry) ListByType(kind types.PluginKind) []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byKind[kind]
	out := make([]Plugin, len(list))
	copy(out, list)
	return out
}

// GetStats summarizes the registry's contents.
func (r *Registry) GetStats() types.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := types.RegistryStats{
		Total:  len(r.byName),
		ByKind: make(map[types.PluginKind]int, len(r.byKind)),
	}
	for kind, list := range r.byKind {
		stats.ByKind[kind] = len(list)
	}
	for _, p := range r.byName {
		if p.IsEnabled() {
			stats.Enabled++
		} else {
			stats.Disabled++
		}
	}
	return stats
}

// FactorySymbol is the exported symbol name every dynamically loaded
// plugin .so must provide: a func() Plugin.
const FactorySymbol = "NewPlugin"

// Discover enumerates the direct children of dir, attempts to load each
// *.so file as a Go plugin (stdlib "plugin" package) via its NewPlugin
// factory symbol, and registers the result. Per-file failures are
// collected, never returned as an error from Discover itself.
func (r *Registry) Discover(dir string) (types.DiscoverResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return types.DiscoverResult{}, nil
		}
		return types.DiscoverResult{}, fmt.Errorf("plugin: read directory %q: %w", dir, err)
	}

	result := types.DiscoverResult{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".so" {
			continue
		}
		result.Total++

		p, err := loadPluginFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}

		if configurable, ok := p.(Configurable); ok {
			cfg, err := pluginconfig.Load(dir, p.Name())
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("%s: load config: %v", entry.Name(), err))
				continue
			}
			if cfg != nil {
				if err := configurable.Configure(cfg); err != nil {
					result.Failed++
					result.Errors = append(result.Errors, fmt.Sprintf("%s: configure: %v", entry.Name(), err))
					continue
				}
			}
		}

		if err := r.Register(p); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}

		result.Loaded++
		result.Plugins = append(result.Plugins, p.Name())
	}

	return result, nil
}

func loadPluginFile(path string) (Plugin, error) {
	lib, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	sym, err := lib.Lookup(FactorySymbol)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", FactorySymbol, err)
	}

	factory, ok := sym.(func() Plugin)
	if !ok {
		return nil, fmt.Errorf("symbol %s has unexpected signature", FactorySymbol)
	}

	return factory(), nil
}
