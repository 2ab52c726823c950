// Package listfile reads newline-delimited URL lists.
package listfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Read returns the lines of the list file at path, in order. Lines are not
// validated here; the normalizer owns rejection semantics, so blank lines
// inside the file are preserved and counted.
func Read(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list file: %w", err)
	}
	defer f.Close()

	lines, err := ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read list file %s: %w", path, err)
	}
	return lines, nil
}

// ReadFrom reads lines from r until EOF.
func ReadFrom(r io.Reader) ([]string, error) {
	var lines []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}
