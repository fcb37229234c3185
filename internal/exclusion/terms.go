package exclusion

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// LoadTerms reads the user exclusion list: one term per line, case-insensitive. Blank lines
// and lines starting with '#' are skipped. A missing file is an empty list, not an error.
func LoadTerms(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil // no exclusions configured
		}
		return nil, fmt.Errorf("open exclusion file: %w", err)
	}
	defer f.Close()

	var terms []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		term := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if term == "" || strings.HasPrefix(term, "#") {
			continue
		}
		terms = append(terms, term)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read exclusion file: %w", err)
	}
	return terms, nil
}
