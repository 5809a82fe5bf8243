package sse

import (
	"bufio"
	"io"
	"strings"
)

// Frame is one decoded server-sent-events frame. Data holds the payload of
// the frame's data lines joined with "\n". End reports the stream-end
// sentinel: the literal "[DONE]" token or an empty payload.
type Frame struct {
	Data string
	End  bool
}

// Event is one item of the frame sequence produced by a connection. Exactly
// one of Frame and Err is meaningful; a non-nil Err terminates the sequence.
type Event struct {
	Frame Frame
	Err   error
}

const doneSentinel = "[DONE]"

// Decoder assembles SSE frames from a byte stream. Frames are delimited by
// a blank line after one or more "data:" lines; input arrives as arbitrary
// byte chunks, so partial frames are buffered until complete. A non-empty
// remainder at stream end is flushed as one final frame.
type Decoder struct {
	r   *bufio.Reader
	buf []string
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next complete frame. It returns io.EOF once the
// underlying reader is exhausted and no buffered remainder is left. Any
// other error is a mid-stream transport failure.
func (d *Decoder) Next() (Frame, error) {
	for {
		line, err := d.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return Frame{}, err
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if len(d.buf) > 0 {
				return d.flush(), nil
			}
			if err == io.EOF {
				return Frame{}, io.EOF
			}
			continue
		}

		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			d.buf = append(d.buf, strings.TrimPrefix(rest, " "))
		} else if err == io.EOF && len(d.buf) == 0 {
			// Trailing remainder without a data prefix still flushes.
			return newFrame(strings.TrimSpace(line)), nil
		}

		if err == io.EOF {
			if len(d.buf) > 0 {
				return d.flush(), nil
			}
			return Frame{}, io.EOF
		}
	}
}

func (d *Decoder) flush() Frame {
	data := strings.Join(d.buf, "\n")
	d.buf = d.buf[:0]
	return newFrame(data)
}

func newFrame(data string) Frame {
	trimmed := strings.TrimSpace(data)
	return Frame{
		Data: data,
		End:  trimmed == "" || trimmed == doneSentinel,
	}
}
