// Package plugin is the registry for action types whose rendering is not a
// style write. Plugin items share the regular instance lifecycle; a plugin
// only decides the progress basis and how a value is painted.
package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/ir"
)

// Plugin renders one PLUGIN_ action type.
type Plugin interface {
	// Config returns the channels authored on the item.
	Config(item ir.ActionItem) ir.Channels
	// Origin returns the starting channels given the element's last rendered
	// state for this type (nil when never rendered).
	Origin(refState ir.Channels, item ir.ActionItem) ir.Channels
	// Duration overrides the item duration in ms; ok=false keeps the item's.
	Duration(a dom.Adapter, n dom.Node, item ir.ActionItem) (ms float64, ok bool)
	Destination(item ir.ActionItem) ir.Channels
	CreateInstance(a dom.Adapter, n dom.Node, item ir.ActionItem) (any, error)
	Render(a dom.Adapter, n dom.Node, instance any, current ir.Channels, item ir.ActionItem) error
	Clear(a dom.Adapter, n dom.Node)
}

// Registry maps plugin action types to implementations. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	plugins map[ir.ActionType]Plugin
}

// NewRegistry returns a registry preloaded with the built-in plugins.
func NewRegistry() *Registry {
	r := &Registry{plugins: map[ir.ActionType]Plugin{}}
	r.plugins[ir.ActionPluginScrub] = FrameScrubber{}
	return r
}

// Register adds or replaces the plugin for kind.
func (r *Registry) Register(kind ir.ActionType, p Plugin) error {
	if !strings.HasPrefix(string(kind), ir.PluginPrefix) {
		return fmt.Errorf("plugin type %q must start with %q", kind, ir.PluginPrefix)
	}
	if p == nil {
		return fmt.Errorf("plugin type %q: nil plugin", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[kind] = p
	return nil
}

// Lookup returns the plugin for kind.
func (r *Registry) Lookup(kind ir.ActionType) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[kind]
	return p, ok
}

// Types lists registered types, sorted.
func (r *Registry) Types() []ir.ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ir.ActionType, 0, len(r.plugins))
	for k := range r.plugins {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
