package session

import (
	"sync"
	"time"
)

// Clock abstracts time for expiry and staleness checks.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return realClock{} }

// Scheduler abstracts the timer and activity sources the synchronizer
// reacts to, so its logic is testable without a real event loop. Each
// registration returns a cancel func; cancel is idempotent.
type Scheduler interface {
	// OnActive registers a callback fired whenever the application becomes
	// active again (the browser analogue is tab-visible / window-focus).
	OnActive(fn func()) (cancel func())
	// Every fires fn on a fixed recurring interval.
	Every(interval time.Duration, fn func()) (cancel func())
	// After fires fn once after the delay unless cancelled.
	After(delay time.Duration, fn func()) (cancel func())
}

// TimerScheduler is the production Scheduler: intervals and delays run on
// goroutine timers, and activity is fed in by the host via NotifyActive.
type TimerScheduler struct {
	mu      sync.Mutex
	nextID  int
	actives map[int]func()
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{actives: make(map[int]func())}
}

// NotifyActive fans the activity signal out to all registered callbacks.
// Hosts call this from whatever "became active" means for them (SIGCONT,
// a websocket reconnect, a UI focus event).
func (ts *TimerScheduler) NotifyActive() {
	ts.mu.Lock()
	callbacks := make([]func(), 0, len(ts.actives))
	for _, fn := range ts.actives {
		callbacks = append(callbacks, fn)
	}
	ts.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (ts *TimerScheduler) OnActive(fn func()) func() {
	ts.mu.Lock()
	id := ts.nextID
	ts.nextID++
	ts.actives[id] = fn
	ts.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			ts.mu.Lock()
			delete(ts.actives, id)
			ts.mu.Unlock()
		})
	}
}

func (ts *TimerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

func (ts *TimerScheduler) After(delay time.Duration, fn func()) func() {
	timer := time.AfterFunc(delay, fn)

	var once sync.Once
	return func() {
		once.Do(func() {
			timer.Stop()
		})
	}
}
