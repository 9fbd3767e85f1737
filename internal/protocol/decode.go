package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// decodeBounded decodes v from r, refusing to read more than limit+1 bytes.
// Reading limit+1 bytes successfully means the payload exceeded its declared
// capacity, which is reported as ErrTooLarge rather than silently truncated
// — the Go equivalent of the spec's fixed-buffer parser rejecting an
// oversized document instead of accepting a partial one.
func decodeBounded(r io.Reader, limit int64, v interface{}) error {
	lr := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return fmt.Errorf("protocol: read body: %w", err)
	}
	if int64(len(data)) > limit {
		return &ErrTooLarge{Reason: fmt.Sprintf("body exceeds %d-byte accumulator capacity", limit)}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("protocol: decode JSON: %w", err)
	}
	return nil
}
