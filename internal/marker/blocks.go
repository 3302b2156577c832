package marker

import "strings"

// UserBlocks holds user text keyed by the region it follows.
type UserBlocks map[Region]string

// Extract collects the user text of previously generated code. Text before
// the first machine line goes to def. Line endings come back as "\n".
func (f *Formatter) Extract(text string, def Region) UserBlocks {
	collected := make(map[Region][]string)
	current := def
	for _, line := range strings.Split(text, "\n") {
		if _, r, machine := f.Parse(line); machine {
			current = r
			continue
		}
		collected[current] = append(collected[current], strings.TrimSuffix(line, "\r"))
	}

	blocks := make(UserBlocks, len(collected))
	for r, lines := range collected {
		if trimmed := trimBlankLines(lines); len(trimmed) > 0 {
			blocks[r] = strings.Join(trimmed, "\n")
		}
	}
	return blocks
}

// HasMarks reports whether any line of text is machine-owned.
func (f *Formatter) HasMarks(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if _, _, machine := f.Parse(line); machine {
			return true
		}
	}
	return false
}

// Generate renders regions in order. Each region is its generated lines,
// marked, followed by its user text. Non-empty regions are separated by one
// blank line and the result ends with a newline unless it is empty. Lines
// end with "\n"; the writer restores the file's own line ending.
func (f *Formatter) Generate(order []Region, generated map[Region]string, user UserBlocks) string {
	chunks := make([]string, 0, len(order))
	for _, r := range order {
		lines := make([]string, 0)
		for _, line := range strings.Split(generated[r], "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines = append(lines, f.Mark(r, line))
		}
		if text := user[r]; text != "" {
			lines = append(lines, text)
		}
		if len(lines) > 0 {
			chunks = append(chunks, strings.Join(lines, "\n"))
		}
	}
	if len(chunks) == 0 {
		return ""
	}
	return strings.Join(chunks, "\n\n") + "\n"
}

func trimBlankLines(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}
