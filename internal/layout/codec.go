package layout

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const maxLineBytes = 64 << 20

// LineError describes a source line that could not be decoded into a
// Document.
type LineError struct {
	Line int
	// Path is the document path when the line still carried a readable one.
	Path string
	Err  error
}

func (e *LineError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("line %d (%s): %v", e.Line, e.Path, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Placeholder is the empty document kept in the stream in place of the bad
// line. Its result carries the line number and the decode error.
func (e *LineError) Placeholder() Document {
	msg, _ := json.Marshal(e.Err.Error())
	return Document{
		Path: e.Path,
		Extra: map[string]json.RawMessage{
			keyDecodeError: msg,
			keySourceLine:  json.RawMessage(strconv.Itoa(e.Line)),
		},
	}
}

// DecodeDocuments parses a JSON Lines source. Blank lines are ignored. A line
// that does not decode is reported as a LineError and replaced by its
// Placeholder, so the returned documents keep source order. The error is
// non-nil only when the source itself cannot be scanned.
func DecodeDocuments(data []byte) ([]Document, []*LineError, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var (
		docs []Document
		bad  []*LineError
	)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			lineErr := &LineError{Line: line, Path: recoverPath(raw), Err: err}
			bad = append(bad, lineErr)
			docs = append(docs, lineErr.Placeholder())
			continue
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("line %d: %w", line+1, err)
	}
	return docs, bad, nil
}

// recoverPath returns the top-level path of a line whose body is invalid,
// or "" when the line is not a JSON object at all.
func recoverPath(raw []byte) string {
	var probe struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.Path
}

// EncodeResults renders one JSON object per line, newline terminated.
func EncodeResults(results []Result) ([]byte, error) {
	var buf bytes.Buffer
	for i, result := range results {
		encoded, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("encode result %d (%s): %w", i, result.Path, err)
		}
		buf.Write(encoded)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// DecodeResults parses result lines written by EncodeResults.
func DecodeResults(data []byte) ([]Result, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var results []Result
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var result Result
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		results = append(results, result)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
