package main

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Wire format, both modes: a frame is zero or more "key: value" lines
// joined by \r\n and terminated by the 4-byte delimiter \r\n\r\n.
var delimiter = []byte("\r\n\r\n")

// splitter reassembles a connection's byte stream into discrete frames.
// The delimiter may arrive split across any number of reads.
type splitter struct {
	buf []byte
}

// feed appends a chunk and returns every complete frame it finishes,
// delimiters stripped. Bytes after the last delimiter are retained.
func (s *splitter) feed(p []byte) [][]byte {
	s.buf = append(s.buf, p...)
	var frames [][]byte
	for {
		i := bytes.Index(s.buf, delimiter)
		if i < 0 {
			return frames
		}
		frame := make([]byte, i)
		copy(frame, s.buf[:i])
		frames = append(frames, frame)
		s.buf = s.buf[i+len(delimiter):]
	}
}

// pending reports how many bytes are buffered awaiting a delimiter.
func (s *splitter) pending() int {
	return len(s.buf)
}

// parseHeaders decodes a frame's leading block into a key/value map.
// One pair per line, split on the first colon, keys lower-cased, both
// sides trimmed. Lines without a colon are skipped. A frame with no
// valid lines yields an empty map.
func parseHeaders(frame []byte) map[string]string {
	headers := make(map[string]string)
	for _, line := range strings.Split(string(frame), "\r\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return headers
}

// headerCursor extracts the last-check cursor. An absent key defaults
// to 0; a present but non-numeric value is a protocol error.
func headerCursor(headers map[string]string) (int64, error) {
	raw, ok := headers["last-check"]
	if !ok {
		return 0, nil
	}
	cursor, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad last-check %q: %w", raw, err)
	}
	return cursor, nil
}

// splitList splits a comma-separated header value, trimming each entry
// and dropping empties.
func splitList(v string) []string {
	var names []string
	for _, name := range strings.Split(v, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
