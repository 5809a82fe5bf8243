// Package messages defines the vendor-agnostic content model produced by the
// streaming engine: the finalized content items of a model turn (text,
// reasoning, tool calls) and the normalized token-usage accounting attached
// to them.
//
// A streamed turn finalizes into one or more content items, one per content
// block the vendor opened. Content items form a closed set; payloads a
// vendor emits that the engine cannot represent are preserved verbatim in an
// Unsupported item rather than dropped.
package messages
