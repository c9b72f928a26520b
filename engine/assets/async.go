package assets

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/spaghettifunk/anima-assets/engine/resources"
	"github.com/spaghettifunk/anima-assets/engine/systems"
)

var ErrLoadPending = errors.New("asynchronous load still pending")

// Handle tracks one LoadAsync request. The result becomes available as soon
// as the worker finishes; the callback only runs from Registry.Update.
type Handle struct {
	ID   uuid.UUID
	Path string

	done     chan struct{}
	value    resources.Resource
	err      error
	callback func(resources.Resource, error)
}

// Done is closed once the load has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) Result() (resources.Resource, error) {
	select {
	case <-h.done:
		return h.value, h.err
	default:
		return nil, ErrLoadPending
	}
}

// Wait blocks until the load finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) (resources.Resource, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

/**
 * @brief Loads p on the registry's job system. The loaded resource lands in the
 * same cache as Load, so a concurrent Load of the same path shares the work.
 * @param p The resource path, optionally a sub-asset path.
 * @param cb Invoked from Update on the thread calling it. May be nil.
 * @return A handle tracking the request.
 */
func (r *Registry) LoadAsync(p string, cb func(resources.Resource, error), opts ...LoadOption) *Handle {
	h := &Handle{
		ID:       uuid.New(),
		Path:     p,
		done:     make(chan struct{}),
		callback: cb,
	}

	err := r.jobs.Submit(systems.JobTask{
		Name: "load " + p,
		Run: func() error {
			h.value, h.err = r.Load(p, opts...)
			return h.err
		},
		OnCompletionCallback: func() {
			r.complete(h)
		},
	})
	if err != nil {
		h.err = err
		r.complete(h)
	}
	return h
}

// complete queues h for Update, then releases its waiters, so a callback is
// always pending by the time Wait returns.
func (r *Registry) complete(h *Handle) {
	r.pendingMu.Lock()
	r.completions.Enqueue(h)
	r.pendingMu.Unlock()
	close(h.done)
}

// queueReload schedules key to be reloaded by the next Update.
func (r *Registry) queueReload(key string) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	r.reloads[key] = struct{}{}
}

/*
Update runs once per frame on the main thread. It delivers the callbacks of
finished asynchronous loads and performs the reloads queued by the file
watcher, so loaders never mutate a resource while the game reads it. It
returns the number of callbacks and reloads processed.
*/
func (r *Registry) Update() int {
	r.pendingMu.Lock()
	finished := make([]*Handle, 0, r.completions.Len())
	for !r.completions.IsEmpty() {
		h, err := r.completions.Dequeue()
		if err != nil {
			break
		}
		finished = append(finished, h)
	}
	keys := make([]string, 0, len(r.reloads))
	for key := range r.reloads {
		keys = append(keys, key)
	}
	r.reloads = make(map[string]struct{})
	r.pendingMu.Unlock()

	for _, h := range finished {
		if h.callback != nil {
			h.callback(h.value, h.err)
		}
	}

	sort.Strings(keys)
	reloaded := 0
	for _, key := range keys {
		ok, err := r.reloader.Reload(key)
		if err != nil {
			// already logged and fired by the reloader
			continue
		}
		if ok {
			reloaded++
		}
	}
	return len(finished) + reloaded
}
