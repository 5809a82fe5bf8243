// Package provider defines the vendor-agnostic streaming contract: the
// normalized chunk vocabulary callers consume, the Provider interface vendor
// adapters implement, and the Adapter record describing one vendor endpoint.
//
// Every adapter, regardless of the vendor's wire protocol, produces the same
// ordered chunk sequence: zero or more deltas (Start, Text, Reasoning,
// ToolCall, End, Failed, Incomplete, NotSupported) followed by zero or more
// Done chunks, one per finalized content item. A sequence terminates on a
// Done chunk, a Failed delta, or natural exhaustion of the transport, and
// chunks are delivered in the exact order the vendor emitted their
// underlying frames.
package provider
