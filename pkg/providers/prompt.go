package providers

import "strings"

// BuildPrompt flattens a system prompt and conversation into the single
// tagged prompt format that single-shot CLI backends expect.
func BuildPrompt(system string, messages []Message) string {
	var b strings.Builder

	if system != "" {
		b.WriteString("<system>\n")
		b.WriteString(system)
		b.WriteString("\n</system>\n\n")
	}

	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}

		switch msg.Role {
		case RoleAssistant:
			b.WriteString("<assistant>\n")
			b.WriteString(msg.Content)
			b.WriteString("\n</assistant>")
		default:
			b.WriteString("<user>\n")
			b.WriteString(msg.Content)
			b.WriteString("\n</user>")
		}
	}

	return b.String()
}

// ChunkContent splits completed content into fixed-size pieces for backends
// whose streaming is reduced to chunked emission of the final response.
func ChunkContent(content string, size int) []string {
	if size <= 0 {
		size = 256
	}

	runes := []rune(content)
	chunks := make([]string, 0, len(runes)/size+1)

	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
