// Package storage provides utilities shared across session ledger
// implementations, including sentinel errors and tenant context helpers.
//
// Ledger adapters (memory, postgres) implement the transport.SessionStore
// interface defined in pkg/transport/handler.go. This package contains
// only shared types and helpers, not the interface itself.
package storage
