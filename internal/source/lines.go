package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadLines reads one basket per line, items separated by delimiter.
// Blank lines and lines starting with '#' are skipped.
func ReadLines(r io.Reader, delimiter string) ([][]string, error) {
	if delimiter == "" {
		delimiter = ","
	}

	var rows [][]string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, strings.Split(line, delimiter))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return rows, nil
}

// ReadList reads a list file (one entry per line), skipping blanks and
// comments and dropping duplicates while keeping first-seen order
func ReadList(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			entries = append(entries, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return entries, nil
}
