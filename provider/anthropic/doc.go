// Package anthropic adapts the Anthropic messages API to the normalized
// chunk stream. Content blocks accumulate between content_block_start and
// message_stop and finalize in opening order; a delta that references a
// block that was never opened, or one of the wrong kind, fails the stream
// with a protocol violation.
package anthropic
