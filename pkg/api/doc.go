// Package api defines the wire types of the skillbridge gateway.
//
// It covers the inbound skill invocation and OpenAI-compatible chat
// requests, the normalized stream events republished to clients, the
// structured tool results nested inside those events, and the error
// envelope shared by every endpoint.
//
// Core types:
//   - [SkillRequest]: a skill invocation (skills, message, token budget, container)
//   - [Event]: one normalized stream event, serialized as a flat JSON object
//   - [Result]: the closed set of tool result shapes carried by result events
//   - [ChatCompletionChunk]: one OpenAI chat.completion.chunk
//   - [APIError]: structured error with type, code, param, and message
//
// The package performs no I/O.
package api
