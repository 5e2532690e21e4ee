package hook

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// DefaultPriority is assigned to handlers registered without WithPriority.
const DefaultPriority = 50

// DuplicateHandlerError reports a registration under an id already taken
// within the same hook.
type DuplicateHandlerError struct {
	Hook string
	ID   string
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("hook %q: handler %q already registered", e.Hook, e.ID)
}

// entry is one registered handler. Exactly one of invoke and alter is set.
type entry struct {
	id       string
	priority int
	after    []string
	once     bool
	invoke   InvokeFunc
	alter    AlterFunc
}

// Option configures a hook registration.
type Option func(*entry)

// WithID fixes the handler id that other handlers may target in After.
// Without it the registry assigns a random unique id.
func WithID(id string) Option {
	return func(e *entry) { e.id = id }
}

// WithPriority sets the dispatch priority. Higher values run earlier; the
// default is DefaultPriority. Equal priorities keep registration order.
func WithPriority(p int) Option {
	return func(e *entry) { e.priority = p }
}

// After names handler ids that must run before this one, overriding
// priority where the two disagree. Ids nobody registered under the same
// hook are ignored.
func After(ids ...string) Option {
	return func(e *entry) { e.after = append(e.after, ids...) }
}

// Once unbinds the handler after its first pass.
func Once() Option {
	return func(e *entry) { e.once = true }
}

// Registry holds the hook table. Registration is safe from any goroutine,
// but dispatch within one pass is sequential.
type Registry struct {
	mu      sync.Mutex
	buckets map[string][]*entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		buckets: make(map[string][]*entry),
	}
}

// Register attaches an invoke handler to the named hook and returns its
// unbind function. Unbinding twice is harmless.
func (r *Registry) Register(name string, fn InvokeFunc, opts ...Option) (func(), error) {
	e := newEntry(opts)
	e.invoke = fn
	return r.add(name, e)
}

// RegisterAlter attaches an alter handler to the named hook and returns
// its unbind function. Unbinding twice is harmless.
func (r *Registry) RegisterAlter(name string, fn AlterFunc, opts ...Option) (func(), error) {
	e := newEntry(opts)
	e.alter = fn
	return r.add(name, e)
}

func newEntry(opts []Option) *entry {
	e := &entry{priority: DefaultPriority}
	for _, opt := range opts {
		opt(e)
	}
	if e.id == "" {
		e.id = uuid.NewString()
	}
	return e
}

func (r *Registry) add(name string, e *entry) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.buckets[name] {
		if existing.id == e.id {
			return nil, &DuplicateHandlerError{Hook: name, ID: e.id}
		}
	}
	r.buckets[name] = append(r.buckets[name], e)
	return func() { r.remove(name, e) }, nil
}

// remove deletes one entry from its bucket, dropping the bucket when it
// empties. Removing an already-removed entry is a no-op.
func (r *Registry) remove(name string, target *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.buckets[name]
	if !ok {
		return
	}
	for i, e := range bucket {
		if e == target {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(r.buckets, name)
	} else {
		r.buckets[name] = bucket
	}
}

// snapshot copies the entries of one bucket that pass the kind filter,
// preserving registration order.
func (r *Registry) snapshot(name string, keep func(*entry) bool) []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entry
	for _, e := range r.buckets[name] {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Names returns the sorted hook names that currently hold at least one
// handler.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.buckets))
	for name := range r.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of handlers registered under name, both
// protocols included.
func (r *Registry) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets[name])
}
