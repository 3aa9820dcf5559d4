package ptyexec

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ansiEscape matches CSI sequences and single-character escapes.
var ansiEscape = regexp.MustCompile(`\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)

// stripTerminalNoise removes ANSI escape sequences and non-printable
// control bytes, keeping newlines so line structure survives.
func stripTerminalNoise(data string) string {
	data = ansiEscape.ReplaceAllString(data, "")

	var b strings.Builder

	b.Grow(len(data))

	for _, r := range data {
		if r == '\n' || r == '\t' || r >= 0x20 {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// parser accumulates process output, splitting it into complete lines and
// decoding each line as one JSON record. Lines that fail to decode stay in
// the transcript only.
type parser struct {
	pending    strings.Builder
	transcript strings.Builder
	content    strings.Builder
	records    []Record
}

func newParser() *parser {
	return &parser{records: make([]Record, 0, 16)}
}

// Feed consumes one chunk of raw process output.
func (p *parser) Feed(chunk []byte) {
	clean := stripTerminalNoise(strings.ReplaceAll(string(chunk), "\r\n", "\n"))
	clean = strings.ReplaceAll(clean, "\r", "\n")

	p.transcript.WriteString(clean)
	p.pending.WriteString(clean)

	buffered := p.pending.String()
	p.pending.Reset()

	lines := strings.Split(buffered, "\n")
	// The last element is an incomplete line; keep it buffered.
	for _, line := range lines[:len(lines)-1] {
		p.parseLine(line)
	}

	p.pending.WriteString(lines[len(lines)-1])
}

// Flush attempts a best-effort parse of a partial trailing line at EOF.
func (p *parser) Flush() {
	if p.pending.Len() == 0 {
		return
	}

	p.parseLine(p.pending.String())
	p.pending.Reset()
}

func (p *parser) parseLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "{") {
		return
	}

	var envelope struct {
		Type    string `json:"type"`
		Result  string `json:"result"`
		Message struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
		Delta struct {
			Text string `json:"text"`
		} `json:"delta"`
	}

	if err := json.Unmarshal([]byte(line), &envelope); err != nil {
		return
	}

	record := Record{Raw: json.RawMessage(line)}

	switch envelope.Type {
	case "assistant":
		record.Type = RecordAssistant
		for _, block := range envelope.Message.Content {
			if block.Type == "text" {
				record.Text += block.Text
			}
		}
	case "content_block_delta":
		record.Type = RecordDelta
		record.Text = envelope.Delta.Text
	case "result":
		record.Type = RecordResult
		record.Text = envelope.Result
	default:
		record.Type = RecordOther
	}

	if record.Text != "" && record.Type != RecordResult {
		p.content.WriteString(record.Text)
	}

	p.records = append(p.records, record)
}

// FinalContent prefers the final result record over accumulated fragments,
// since the result carries the complete assembled response.
func (p *parser) FinalContent() string {
	for i := len(p.records) - 1; i >= 0; i-- {
		if p.records[i].Type == RecordResult && p.records[i].Text != "" {
			return p.records[i].Text
		}
	}

	return p.content.String()
}
