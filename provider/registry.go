package provider

import "github.com/casualjim/chorus/internal/registry"

// Global is the process-wide registry of constructed providers, keyed by
// adapter name.
var Global = registry.New[Provider]()

// Add registers a provider under its name.
func Add(p Provider) {
	Global.Add(p.Name(), p)
}

// Get returns the registered provider with the given name.
func Get(name string) (Provider, bool) {
	return Global.Get(name)
}

// GetOrAdd returns the registered provider with the given name, constructing
// and registering it when absent.
func GetOrAdd(name string, providerFn func() Provider) Provider {
	p, _ := Global.GetOrAdd(name, providerFn)
	return p
}

// Del removes the provider with the given name.
func Del(name string) {
	Global.Del(name)
}

// Names lists the registered provider names.
func Names() []string {
	return Global.Names()
}
