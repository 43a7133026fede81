// Package core implements the tools shared by the services of the ledger.
//
// Documentation Last Review: 14.10.2026
//
package core

import "sync"

// Observer is the interface to implement to be told about the outcome of the
// transactions. The callback runs on the goroutine of the notifier and must
// return without waiting on the subscriber.
type Observer interface {
	NotifyCallback(event interface{})
}

// Observable is the list of subscribers of a service.
type Observable interface {
	// Add subscribes the observer. Adding the same observer twice keeps a
	// single subscription.
	Add(observer Observer)

	// Remove unsubscribes the observer, if present.
	Remove(observer Observer)

	// Notify hands the event, usually a receipt, to every subscriber.
	Notify(event interface{})
}

// Watcher is a concurrent set of observers. The ordering service uses one to
// publish its receipts.
//
// - implements core.Observable
type Watcher struct {
	sync.RWMutex

	observers map[Observer]struct{}
}

// NewWatcher creates a new watcher without subscribers.
func NewWatcher() *Watcher {
	return &Watcher{
		observers: make(map[Observer]struct{}),
	}
}

// Add implements core.Observable.
func (w *Watcher) Add(observer Observer) {
	w.Lock()
	w.observers[observer] = struct{}{}
	w.Unlock()
}

// Remove implements core.Observable.
func (w *Watcher) Remove(observer Observer) {
	w.Lock()
	delete(w.observers, observer)
	w.Unlock()
}

// Len returns the number of subscribers.
func (w *Watcher) Len() int {
	w.RLock()
	defer w.RUnlock()

	return len(w.observers)
}

// Notify implements core.Observable. The subscribers are called one after the
// other, in no particular order, while the set is locked for reading, so a
// callback must not add or remove an observer.
func (w *Watcher) Notify(event interface{}) {
	w.RLock()
	defer w.RUnlock()

	for obs := range w.observers {
		obs.NotifyCallback(event)
	}
}
