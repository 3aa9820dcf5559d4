package ptyexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyActivity(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"reading", "Reading src/main.go to understand structure", "reading files"},
		{"writing", "Creating new file handlers.go", "writing files"},
		{"editing", "Updating the configuration loader", "editing files"},
		{"testing", "All 12 tests passed", "running tests"},
		{"installing", "pip install requests", "installing dependencies"},
		{"thinking", "Analyzing the failure mode", "thinking"},
		{"generic", "some unclassifiable chatter", "working"},
		{"ordered precedence", "reading test fixtures", "reading files"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyActivity(tt.text))
		})
	}
}

func TestBatcherEmitsOncePerTick(t *testing.T) {
	var emitted []string

	b := newMilestoneBatcher(func(label string) {
		emitted = append(emitted, label)
	})

	b.Feed("reading config files")
	b.Feed("reading more files")
	b.Tick()

	assert.Equal(t, []string{"reading files"}, emitted)
}

func TestBatcherDeduplicatesAcrossTicks(t *testing.T) {
	var emitted []string

	b := newMilestoneBatcher(func(label string) {
		emitted = append(emitted, label)
	})

	b.Feed("reading a file")
	b.Tick()
	b.Feed("reading another file")
	b.Tick()
	b.Feed("now creating output files")
	b.Tick()

	assert.Equal(t, []string{"reading files", "writing files"}, emitted)
}

func TestBatcherSkipsEmptyTicks(t *testing.T) {
	var emitted []string

	b := newMilestoneBatcher(func(label string) {
		emitted = append(emitted, label)
	})

	b.Tick()
	b.Tick()

	assert.Empty(t, emitted)
}
