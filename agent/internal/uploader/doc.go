// Package uploader runs the background worker that drains the reading queue
// and relays each reading to the wetterblick endpoint.
//
// Worker.Run is the single consumer of a queue.Queue. Per reading it:
//
//   - drops it when more than MaxBacklog readings are still queued behind it
//   - drops it when it is older than Stale
//   - waits until PostInterval has passed since the previous attempt
//   - builds the request (wetterblick.BuildParams)
//   - logs instead of sending when SkipUpload is set
//   - sends it with up to MaxTries attempts, RetryWait apart, each bounded by
//     Timeout, and classifies the response body
//
// Server and transport errors are retried and then logged; the reading is
// dropped and the loop continues. A bad login ends Run with an error wrapping
// wetterblick.ErrBadLogin because every later reading would fail the same way.
//
// The clock, the sleep function, the HTTP client and the unit converter are
// injectable so tests run without real waits or network access.
package uploader
