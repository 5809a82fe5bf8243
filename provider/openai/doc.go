// Package openai adapts the OpenAI responses API to the normalized chunk
// stream. Text, reasoning summary, and function-call arguments stream as
// deltas; the terminal response.completed event carries the finalized
// output items that become Done chunks.
package openai
