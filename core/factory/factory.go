package factory

import (
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// ModuleConfig selects a pluggable implementation by type name and carries
// its raw settings, exactly as they appear under the config file's sink list.
type ModuleConfig struct {
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`
}

// Factory builds a T from its raw settings map.
type Factory[T any] func(map[string]any) (T, error)

// Registry maps type names to factories. Registration happens in package
// init functions; Create is called during wiring.
type Registry[T any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{factories: make(map[string]Factory[T])}
}

// Register adds a factory under name. Registering a name twice is an error
// so init-time collisions surface immediately.
func (r *Registry[T]) Register(name string, f Factory[T]) error {
	if f == nil {
		return fmt.Errorf("nil factory for %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("factory %q registered twice", name)
	}
	r.factories[name] = f
	return nil
}

// Create builds the implementation named by cfg.Type.
func (r *Registry[T]) Create(cfg ModuleConfig) (T, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("no factory for type %q", cfg.Type)
	}
	return f(cfg.Conf)
}

// Decode unmarshals a raw settings map into out, matching fields by their
// json tags so config structs need a single tag set for files and factories.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: out})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}
