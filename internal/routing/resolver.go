package routing

import (
	"strings"

	"labelops/internal/ingest"
)

// ResolveClient returns the client named on the first non-blank line of text,
// lowercased, or defaultClientID when that line is anything else. Later lines
// are never inspected.
func ResolveClient(text, defaultClientID string) string {
	for _, line := range strings.FieldsFunc(text, isLineBreak) {
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		if ingest.ValidClientID(line) {
			return line
		}
		break
	}
	return defaultClientID
}

// isLineBreak matches every line boundary a chat client may send, including
// bare CR, vertical tab, form feed, the ASCII separators and U+2028/U+2029.
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// ClientSet is the closed set of configured client ids, stored lowercased.
type ClientSet struct {
	ids   []string
	index map[string]struct{}
}

func NewClientSet(ids []string) ClientSet {
	cs := ClientSet{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, dup := cs.index[id]; dup {
			continue
		}
		cs.index[id] = struct{}{}
		cs.ids = append(cs.ids, id)
	}
	return cs
}

// Lookup normalizes id and reports whether it names a configured client.
func (c ClientSet) Lookup(id string) (string, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	if !ingest.ValidClientID(id) {
		return id, false
	}
	_, ok := c.index[id]
	return id, ok
}

func (c ClientSet) List() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}
