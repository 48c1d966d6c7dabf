// Package transport defines the handler interfaces and middleware chain
// between the HTTP adapter and the gateway engine.
//
// # Handler Interfaces
//
//   - Invoker runs skill invocations, as one JSON response or a native
//     SSE stream.
//   - ChatCompleter serves OpenAI-compatible chat completions.
//   - SessionStore records the summary of every finished session.
//
// The ResponseWriter interface abstracts streaming and non-streaming
// output, so the engine can emit SSE frames or a complete JSON document
// without knowing the underlying protocol.
//
// # Middleware
//
// Middleware wraps a Service (Invoker plus ChatCompleter). Built-in
// middleware provides panic recovery, request ID assignment and
// structured logging via log/slog. Intercept adapts a single function
// into middleware that runs around every operation.
//
// # In-flight sessions
//
// InFlightRegistry maps running session IDs to cancel functions, so a
// DELETE can stop a session and shutdown can stop all of them.
package transport
