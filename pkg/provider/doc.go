// Package provider defines the upstream abstraction the gateway streams
// from. A Provider opens a blocking, pull-based EventStream over one
// generation; adapters (see provider/anthropic) translate their SDK's
// stream into Events carrying the raw upstream JSON, so the stream
// package can normalize events without depending on any SDK.
package provider
