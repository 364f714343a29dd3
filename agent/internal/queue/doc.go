// Package queue is the FIFO work queue between reading producers and the
// upload worker.
//
// Put is safe for concurrent use and never blocks. A Queue built with a
// positive capacity evicts its oldest reading when full so the latest data is
// always preserved; capacity 0 means unbounded. Shutdown enqueues a sentinel:
// readings put before it are still delivered, then Get returns ErrShutdown.
package queue
