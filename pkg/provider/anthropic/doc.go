// Package anthropic implements provider.Provider and provider.FileStore
// on top of the Anthropic Go SDK, using the beta Messages API so that
// requests can carry a skills container and the code execution tool.
package anthropic
