package store

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// TokenList is the deduplicated input, plus load accounting.
type TokenList struct {
	Tokens            []string
	Total             int
	DuplicatesRemoved int
}

// LoadTokens reads a newline-delimited token file. Lines are trimmed, blanks
// dropped, and duplicates removed preserving first-seen order.
func LoadTokens(path string) (TokenList, error) {
	file, err := os.Open(path)
	if err != nil {
		return TokenList{}, errors.Wrapf(err, "open token file %q", path)
	}
	defer file.Close()

	seen := make(map[string]struct{})
	var tokens []string
	raw := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		raw++
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return TokenList{}, errors.Wrapf(err, "read token file %q", path)
	}

	return TokenList{
		Tokens:            tokens,
		Total:             len(tokens),
		DuplicatesRemoved: raw - len(tokens),
	}, nil
}

// ValidWriter appends validated tokens to a file as they arrive, so partial
// progress survives a crash mid-run.
type ValidWriter struct {
	mu   sync.Mutex
	file *os.File
}

// NewValidWriter opens (creating if needed) the valid-token file in append
// mode.
func NewValidWriter(path string) (*ValidWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "open valid file %q", path)
	}
	return &ValidWriter{file: f}, nil
}

// Append writes one token and flushes it immediately.
func (w *ValidWriter) Append(token string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.WriteString(token + "\n"); err != nil {
		return errors.Wrap(err, "append valid token")
	}
	return w.file.Sync()
}

func (w *ValidWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// CountLines reports how many non-blank lines a file holds. Used for the
// final summary of the valid file.
func CountLines(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
