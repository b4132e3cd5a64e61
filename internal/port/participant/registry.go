package participant

import (
	"fmt"
	"sync"
)

// Factory is a constructor function that creates a new Participant instance.
// name is the instance name; options carry implementation-specific settings.
type Factory func(name string, options map[string]string) (Participant, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a participant factory available by kind.
// It is typically called from an init() function in the adapter package.
func Register(kind string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("participant: duplicate registration for %q", kind))
	}
	factories[kind] = factory
}

// New creates a new Participant of the given kind using the registered factory.
func New(kind, name string, options map[string]string) (Participant, error) {
	mu.RLock()
	factory, ok := factories[kind]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("participant: unknown kind %q", kind)
	}
	return factory(name, options)
}

// Available returns the kinds of all registered participant factories.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	return kinds
}
