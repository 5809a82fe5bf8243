// Package sse implements the streaming transport shared by every vendor
// adapter: it establishes a server-sent-events HTTP connection, decodes the
// byte stream into whole frames, and retries rate-limited establishment
// attempts with exponential backoff.
//
// The transport is deliberately vendor-blind. It deals in Request values
// (method, URL, headers, serialized body) supplied by an adapter and yields
// raw Frame records; decoding frame payloads into vendor events happens
// downstream.
//
// Retry applies only to establishment, the initial request/response
// handshake. An already-open byte stream is never retried; a mid-stream
// failure terminates the frame sequence with an error event and the caller
// must re-issue the whole turn.
package sse
