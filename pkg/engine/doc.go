// Package engine implements the gateway's orchestration logic. Engine
// implements transport.Service: it validates skill and chat requests,
// translates them into upstream requests, runs streaming sessions
// through a stream.Producer and stream.Bridge, and records each finished
// session in the ledger. Optional collaborators (the session store and
// the in-flight registry) use nil-safe composition.
package engine
