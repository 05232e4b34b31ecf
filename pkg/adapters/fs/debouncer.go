package fs

import (
	"sync"
	"time"

	"github.com/aretw0/capsule/pkg/core"
)

// debouncer coalesces bursts of events for the same path into one
// delivery after a quiet period.
type debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	timers  map[string]*time.Timer
	gen     map[string]uint64
	wg      sync.WaitGroup
	stopped bool
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		gen:    make(map[string]uint64),
	}
}

// add schedules fn(e), replacing any pending delivery for the same path.
func (d *debouncer) add(e core.Event, fn func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	key := e.Path
	if t, ok := d.timers[key]; ok && t.Stop() {
		d.wg.Done()
	}
	d.gen[key]++
	gen := d.gen[key]

	d.wg.Add(1)
	d.timers[key] = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		if d.gen[key] == gen {
			delete(d.timers, key)
		}
		d.mu.Unlock()

		fn(e)
	})
}

// stopAndWait cancels pending deliveries and waits for running ones.
func (d *debouncer) stopAndWait(timeout time.Duration) bool {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
