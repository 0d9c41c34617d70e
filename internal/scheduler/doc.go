// Package scheduler provides the cooperative task scheduler that drives
// module initialization and periodic checks.
//
// Work is split into resumable tasks. A task does a bounded amount of work
// per Step and reports whether it has more. The scheduler keeps two queues:
//
//   - serial: a FIFO where only the head task advances per tick; the next
//     task starts only after the head finished.
//   - parallel: a set where every member advances once per tick.
//
// The scheduler never runs on its own. Tick is called by the owner, which
// is told through a [Waker] whenever a tick is wanted. Nothing in this
// package is safe for concurrent use; the owner serializes every call.
package scheduler
