// Package stream bridges a blocking upstream event iterator to a
// Server-Sent Events response.
//
// A Session owns the per-request trackers (blocks, steps, artifacts).
// Normalize turns each raw upstream event into zero or more api.Event
// values. A Producer runs the upstream call on its own goroutine and
// feeds normalized events into a bounded channel, closing it exactly once
// when the upstream stream ends. A Bridge drains that channel, encodes
// each event with a Dialect (native or OpenAI chunk) and writes keepalive
// comments while the upstream is quiet.
package stream
