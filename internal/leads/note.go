package leads

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
)

const (
	noteFenceOpen  = "```json\n"
	noteFenceClose = "\n```"
)

var notePattern = regexp.MustCompile("(?s)```json\n(.*?)\n```")

// EncodeStructuredNote renders payload as indented JSON inside the fenced
// block that serves as the durable issue-body schema.
func EncodeStructuredNote(payload map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("leads: encode note: %w", err)
	}
	return noteFenceOpen + string(bytes.TrimRight(buf.Bytes(), "\n")) + noteFenceClose, nil
}

// ExtractStructuredNote parses the first fenced JSON block in body. It never
// fails: a missing block or undecodable JSON yields an empty map.
func ExtractStructuredNote(body string) map[string]any {
	match := notePattern.FindStringSubmatch(body)
	if len(match) < 2 {
		return map[string]any{}
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(match[1])))
	dec.UseNumber()
	var note map[string]any
	if err := dec.Decode(&note); err != nil || note == nil {
		return map[string]any{}
	}
	// Trailing content after the object makes the whole block invalid.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return map[string]any{}
	}
	return note
}
