package detector

import "sync"

// disposer is an owned list of teardown actions. Actions are appended as
// resources are acquired and all run together on dispose.
type disposer struct {
	mu      sync.Mutex
	actions []func()
}

func (d *disposer) add(action func()) {
	d.mu.Lock()
	d.actions = append(d.actions, action)
	d.mu.Unlock()
}

// dispose runs and clears every pending action. Safe to call repeatedly.
func (d *disposer) dispose() {
	d.mu.Lock()
	actions := d.actions
	d.actions = nil
	d.mu.Unlock()

	for i := len(actions) - 1; i >= 0; i-- {
		actions[i]()
	}
}

func (d *disposer) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.actions)
}
