package file

import (
	"bufio"
	"os"
	"strings"
)

// ReadList reads a line-based list file, such as a list of resource names
// to process, and returns its non-empty, non-comment lines in order. Lines
// starting with '#' after trimming are comments; anything after " #" on a
// line is a trailing comment.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, " #"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
