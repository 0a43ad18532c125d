// Package chat is the client for the voice chat backend: streaming chat
// over server-sent events, on-demand text to speech, and conversation
// memory lookups.
package chat
