package ptyexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserAssistantRecords(t *testing.T) {
	p := newParser()

	p.Feed([]byte(`{"type":"assistant","message":{"content":[{"type":"text","text":"hello "}]}}` + "\n"))
	p.Feed([]byte(`{"type":"assistant","message":{"content":[{"type":"text","text":"world"}]}}` + "\n"))

	require.Len(t, p.records, 2)
	assert.Equal(t, RecordAssistant, p.records[0].Type)
	assert.Equal(t, "hello world", p.FinalContent())
}

func TestParserLineSplitAcrossChunks(t *testing.T) {
	p := newParser()

	line := `{"type":"content_block_delta","delta":{"text":"partial"}}` + "\n"

	p.Feed([]byte(line[:20]))
	p.Feed([]byte(line[20:]))

	require.Len(t, p.records, 1)
	assert.Equal(t, RecordDelta, p.records[0].Type)
	assert.Equal(t, "partial", p.records[0].Text)
}

func TestParserPrefersFinalResult(t *testing.T) {
	p := newParser()

	p.Feed([]byte(`{"type":"content_block_delta","delta":{"text":"frag"}}` + "\n"))
	p.Feed([]byte(`{"type":"result","result":"the full response"}` + "\n"))

	assert.Equal(t, "the full response", p.FinalContent())
}

func TestParserPlainTextStaysInTranscript(t *testing.T) {
	p := newParser()

	p.Feed([]byte("just some log output\n"))

	assert.Empty(t, p.records)
	assert.Contains(t, p.transcript.String(), "just some log output")
}

func TestParserFlushesPartialTrailingLine(t *testing.T) {
	p := newParser()

	p.Feed([]byte(`{"type":"result","result":"truncated run"}`))
	require.Empty(t, p.records)

	p.Flush()

	require.Len(t, p.records, 1)
	assert.Equal(t, "truncated run", p.FinalContent())
}

func TestStripTerminalNoise(t *testing.T) {
	input := "\x1B[31mred\x1B[0m text\x07 and\nnewline"

	cleaned := stripTerminalNoise(input)

	assert.Equal(t, "red text and\nnewline", cleaned)
}
