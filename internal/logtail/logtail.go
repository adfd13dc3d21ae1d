package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Read returns at most maxLines from the end of the file at path. A
// missing file yields no lines and no error; maxLines <= 0 reads the
// whole file.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	// Ring buffer keeps memory at O(maxLines) regardless of file size.
	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Level extracts the level token from a console-encoded diagnostic log
// line, lowercased. Lines without a recognizable level return "".
func Level(line string) string {
	for _, field := range strings.Fields(line) {
		switch field {
		case "DEBUG", "INFO", "WARN", "ERROR", "DPANIC", "PANIC", "FATAL":
			return strings.ToLower(field)
		}
	}
	return ""
}

// Filter keeps the lines whose level matches. An empty level keeps
// everything; lines without a level token ride along with the previous
// matching line (multi-line stack traces).
func Filter(lines []string, level string) []string {
	if level == "" {
		return lines
	}
	var out []string
	keeping := false
	for _, line := range lines {
		switch l := Level(line); {
		case l == level:
			keeping = true
			out = append(out, line)
		case l == "":
			if keeping {
				out = append(out, line)
			}
		default:
			keeping = false
		}
	}
	return out
}
