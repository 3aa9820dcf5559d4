package ptyexec

import (
	"strings"
	"sync"
	"time"
)

// MilestoneCadence is how often at most one progress label is emitted.
// Batching trades precision for volume so slow consumers are never stalled
// by a transcript firehose.
const MilestoneCadence = 2500 * time.Millisecond

// activityClass pairs a label with the keywords that select it. Classes are
// checked in order; the first with a keyword hit wins.
type activityClass struct {
	label    string
	keywords []string
}

var activityClasses = []activityClass{
	{"reading files", []string{"reading", "read file", "searching", "grep", "looking at"}},
	{"writing files", []string{"writing", "creating", "create file", "new file"}},
	{"editing files", []string{"editing", "updating", "modifying", "replacing"}},
	{"running tests", []string{"test", "pytest", "assert", "passed", "failed"}},
	{"installing dependencies", []string{"install", "npm i", "pip install", "go get", "downloading"}},
	{"thinking", []string{"thinking", "analyzing", "considering", "planning"}},
}

const genericActivity = "working"

// milestoneBatcher accumulates raw output text and, on each cadence tick,
// classifies the dominant activity and emits at most one label, deduplicated
// against the previous tick.
type milestoneBatcher struct {
	mu        sync.Mutex
	buf       strings.Builder
	lastLabel string
	emit      func(label string)
}

func newMilestoneBatcher(emit func(label string)) *milestoneBatcher {
	return &milestoneBatcher{emit: emit}
}

func (b *milestoneBatcher) Feed(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf.WriteString(text)
}

// Tick classifies and drains the buffer. A label is emitted only when the
// buffer is non-empty and the label differs from the previous tick's.
func (b *milestoneBatcher) Tick() {
	b.mu.Lock()

	text := b.buf.String()
	b.buf.Reset()

	if text == "" {
		b.mu.Unlock()

		return
	}

	label := classifyActivity(text)
	if label == b.lastLabel {
		b.mu.Unlock()

		return
	}

	b.lastLabel = label
	emit := b.emit
	b.mu.Unlock()

	if emit != nil {
		emit(label)
	}
}

func classifyActivity(text string) string {
	lowered := strings.ToLower(text)

	for _, class := range activityClasses {
		for _, keyword := range class.keywords {
			if strings.Contains(lowered, keyword) {
				return class.label
			}
		}
	}

	return genericActivity
}
