package transport

import "fmt"

// Registry maps channel tags to their adapters. It is populated once at
// startup and read-only afterwards, so sends never branch on address
// prefixes inline.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if a != nil {
			r.adapters[a.Channel()] = a
		}
	}
	return r
}

// For resolves the adapter responsible for a channel-prefixed address.
func (r *Registry) For(addr string) (Adapter, error) {
	channel, _, ok := SplitAddress(addr)
	if !ok {
		return nil, fmt.Errorf("%w: malformed address %q", ErrUnknownChannel, addr)
	}
	a, ok := r.adapters[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
	return a, nil
}

// All returns the registered adapters.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}
