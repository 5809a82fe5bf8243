// Package google adapts the Gemini generateContent API to the normalized
// chunk stream. Every stream event is the same response wrapper; the turn
// ends with the first candidate that reports a finish reason, whose parts
// finalize into the Done chunk.
package google
