// Package parser provides streaming JSONL parsing for Claude Code transcripts.
//
// Only what the trigger engine needs is extracted: the size of the
// transcript, line counts, and the token usage reported by the most recent
// main-thread assistant message.
package parser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Message type constants for transcript entries.
const (
	msgTypeUser      = "user"
	msgTypeAssistant = "assistant"
)

// Parser handles streaming JSONL parsing with configurable options.
type Parser struct {
	// SkipMalformed skips malformed lines instead of erroring.
	SkipMalformed bool

	// MaxLineSize is the largest line the scanner accepts.
	MaxLineSize int
}

// NewParser creates a parser with default settings.
func NewParser() *Parser {
	return &Parser{
		SkipMalformed: true,
		MaxLineSize:   1024 * 1024, // 1MB max line size
	}
}

// Usage is the token accounting attached to one assistant message.
type Usage struct {
	InputTokens              int `json:"input_tokens" yaml:"input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens" yaml:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens" yaml:"cache_read_input_tokens"`
	OutputTokens             int `json:"output_tokens" yaml:"output_tokens"`
}

// ContextTokens is how much of the context window the message occupied.
func (u Usage) ContextTokens() int {
	return u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
}

// rawMessage represents the raw JSON structure from Claude Code transcripts.
type rawMessage struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	Timestamp   string `json:"timestamp"`
	IsSidechain bool   `json:"isSidechain"`
	Message     *struct {
		Role  string `json:"role"`
		Model string `json:"model"`
		Usage *Usage `json:"usage"`
	} `json:"message,omitempty"`
}

// Summary is the result of scanning a transcript.
type Summary struct {
	SessionID      string
	TotalLines     int
	MalformedLines int
	UserMessages   int
	Assistant      int

	// LastUsage is the usage of the newest main-thread assistant message,
	// nil when none carried usage.
	LastUsage *Usage
	Model     string
	LastAt    time.Time

	// Errors holds per-line errors when SkipMalformed is false.
	Errors []error
}

// ParseError provides structured error information for transcript parsing failures.
type ParseError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Parse reads JSONL from the reader and summarizes it.
func (p *Parser) Parse(r io.Reader) (*Summary, error) {
	sum := &Summary{}

	maxLine := p.MaxLineSize
	if maxLine <= 0 {
		maxLine = 1024 * 1024
	}
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, min(64*1024, maxLine))
	scanner.Buffer(buf, maxLine)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		sum.TotalLines = lineNum

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg rawMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			sum.MalformedLines++
			if !p.SkipMalformed {
				sum.Errors = append(sum.Errors, &ParseError{Line: lineNum, Message: err.Error()})
			}
			continue
		}
		p.apply(&msg, sum)
	}

	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("scanner error: %w", err)
	}
	return sum, nil
}

func (p *Parser) apply(msg *rawMessage, sum *Summary) {
	if sum.SessionID == "" && msg.SessionID != "" {
		sum.SessionID = msg.SessionID
	}
	switch msg.Type {
	case msgTypeUser:
		sum.UserMessages++
	case msgTypeAssistant:
		sum.Assistant++
		if msg.IsSidechain || msg.Message == nil || msg.Message.Usage == nil {
			return
		}
		u := *msg.Message.Usage
		sum.LastUsage = &u
		if msg.Message.Model != "" {
			sum.Model = msg.Message.Model
		}
		if ts := parseTimestamp(msg.Timestamp); !ts.IsZero() {
			sum.LastAt = ts
		}
	}
}

// ParseFile parses a JSONL file by path.
func (p *Parser) ParseFile(path string) (sum *Summary, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return p.Parse(f)
}

// Size returns the transcript size in bytes, or 0 when it cannot be read.
func Size(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}

// LastUsage returns the newest main-thread usage in the transcript at path.
func LastUsage(path string) (*Usage, error) {
	sum, err := NewParser().ParseFile(path)
	if err != nil {
		return nil, err
	}
	return sum.LastUsage, nil
}

// timestampFormats lists the formats to try when parsing timestamps.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
}

// parseTimestamp parses a timestamp string, trying multiple formats.
// Returns zero time if all formats fail.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if ts, err := time.Parse(format, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}
