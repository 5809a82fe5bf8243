// Package chorus normalizes streaming LLM completions across vendors.
//
// Each vendor (Anthropic messages, OpenAI responses, Google generateContent)
// speaks its own event protocol over SSE. The vendor packages under
// provider/ decode those protocols into one shared chunk vocabulary:
// incremental deltas (Text, Reasoning, ToolCall, ...) followed by exactly
// one terminal signal per turn, either Done chunks carrying the finalized
// content or an error arm (Error, Failed, Incomplete).
//
// The engine takes serialized vendor request bodies in and hands normalized
// chunks out; building bodies and re-encoding chunks for a UI are the
// caller's business. This package adds the small glue on top: invoking a
// registered provider by name and fanning a turn's chunks out through a
// broker topic.
package chorus
