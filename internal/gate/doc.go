// Package gate turns the single-threaded inference engine into a service
// that accepts any number of concurrent callers.
//
// A Gate holds one admission slot and an ordered list of waiters. Callers
// are appended to the tail of the list and admitted strictly from the head,
// one at a time, when the slot is free. A waiter leaves the list in exactly
// one way: admitted (then completed), cancelled, or timed out. Close resolves
// every queued waiter to cancelled.
//
// The gate's mutex guards state transitions only (enqueue, admit, complete,
// cancel, close). It is never held across the engine call, so new arrivals
// can always enqueue while a generation runs.
package gate
