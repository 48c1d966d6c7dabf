package provider

import (
	"context"
	"io"

	"github.com/Kenerlee/skillbridge/pkg/api"
)

// Provider abstracts the upstream Messages API.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "anthropic").
	Name() string

	// Stream starts a streaming generation. The returned EventStream
	// blocks in Next until the next upstream event arrives. Cancelling
	// ctx aborts the underlying read.
	Stream(ctx context.Context, req *Request) (EventStream, error)

	// Complete performs a non-streaming generation.
	Complete(ctx context.Context, req *Request) (*Message, error)

	// Close releases provider resources.
	Close() error
}

// FileStore exposes the upstream Files API, where artifacts produced in
// a container end up.
type FileStore interface {
	FileMetadata(ctx context.Context, fileID string) (*api.FileInfo, error)
	DownloadFile(ctx context.Context, fileID string) (*File, error)
	ListFiles(ctx context.Context) ([]api.FileInfo, error)
}

// EventStream is a blocking iterator over one upstream generation. It
// follows the Next/Current/Err convention: Next returns false when the
// stream is exhausted or failed, after which Err reports the failure and
// Message returns the accumulated final message.
type EventStream interface {
	Next() bool
	Current() Event
	Err() error
	Message() *Message
	Close() error
}

// File is a downloaded upstream file. Callers must close Body.
type File struct {
	Info api.FileInfo
	Body io.ReadCloser
}
