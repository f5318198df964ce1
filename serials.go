package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// readSerialList loads raw device serials from a headerless CSV file,
// one serial per line. Only the first column is used. Normalization
// (uppercasing, junk stripping, dedup) happens in the engine, so the
// strings returned here are raw.
func readSerialList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening serial list: %w", err)
	}
	defer f.Close()

	var serials []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if i := strings.IndexByte(line, ','); i >= 0 {
			line = line[:i]
		}

		serials = append(serials, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading serial list %s: %w", path, err)
	}

	return serials, nil
}
