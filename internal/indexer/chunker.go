package indexer

import "strings"

// Chunk splits text into overlapping word windows. Tokens are
// whitespace-delimited; each window holds up to window tokens and the start
// advances by window-overlap tokens, so neighboring chunks share context.
// Empty or whitespace-only input yields no chunks. The same input always
// produces the same boundaries, which the deterministic vector ID scheme
// depends on.
func Chunk(text string, window, overlap int) []string {
	if window <= 0 || overlap < 0 || overlap >= window {
		return nil
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := window - overlap
	var chunks []string
	for start := 0; start < len(words); start += stride {
		end := start + window
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
