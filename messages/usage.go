package messages

// Usage tracks normalized token consumption for one turn. Vendors report
// these under different field names; adapters map them into this one shape.
// TotalTokens is zero when the vendor does not report a total.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens,omitempty"`
}

// Add accumulates another usage record into this one. Vendors that stream
// usage incrementally (message_start carries input tokens, message_delta the
// running output count) are folded together with this.
func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// Total returns the reported total when present, otherwise the sum of input
// and output tokens.
func (u Usage) Total() int64 {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.InputTokens + u.OutputTokens
}
