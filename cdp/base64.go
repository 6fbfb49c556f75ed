package cdp

import (
	"encoding/base64"
	"fmt"
)

// Base64Decoder incrementally decodes a base64 stream delivered in
// arbitrarily sized chunks, such as the successive "data" fields returned by
// repeated IO.read calls against a Page.printToPDF stream handle. Chrome does
// not guarantee that chunk boundaries fall on 4-character base64 group
// boundaries, and chunks may carry leading/trailing whitespace, so a plain
// per-chunk base64.StdEncoding.DecodeString call would fail or silently drop
// bytes at the boundary. Base64Decoder carries the undecoded remainder
// (0-3 bytes) across Push calls to account for this.
type Base64Decoder struct {
	carry []byte
}

// Push decodes as much of chunk as forms complete base64 groups, combined
// with any carry left over from the previous call, and returns the decoded
// bytes. Bytes that don't complete a 4-character group are retained
// internally and prefixed onto the next call's input.
func (d *Base64Decoder) Push(chunk []byte) ([]byte, error) {
	buf := make([]byte, 0, len(d.carry)+len(chunk))
	buf = append(buf, d.carry...)
	for _, b := range chunk {
		if isBase64Whitespace(b) {
			continue
		}
		buf = append(buf, b)
	}

	usable := len(buf) - (len(buf) % 4)
	d.carry = append(d.carry[:0], buf[usable:]...)

	if usable == 0 {
		return nil, nil
	}

	out := make([]byte, base64.StdEncoding.DecodedLen(usable))
	n, err := base64.StdEncoding.Decode(out, buf[:usable])
	if err != nil {
		return nil, fmt.Errorf("cdp: decoding base64 stream chunk: %w", err)
	}
	return out[:n], nil
}

// Close finalizes the stream. It never returns decoded bytes: Push decodes
// every complete group, so an empty carry yields (nil, nil). Chrome's
// IO.read always returns groups aligned so that this is the case in
// practice; a non-empty carry at Close time indicates a truncated stream
// and is reported as an error rather than silently dropped.
func (d *Base64Decoder) Close() ([]byte, error) {
	if len(d.carry) == 0 {
		return nil, nil
	}
	return nil, fmt.Errorf("cdp: base64 stream ended mid-group with %d leftover byte(s)", len(d.carry))
}

// Reset discards any carried partial group, readying the decoder for reuse
// on a fresh stream.
func (d *Base64Decoder) Reset() {
	d.carry = d.carry[:0]
}

func isBase64Whitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}
