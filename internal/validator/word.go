package validator

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxHeadwordLen = 255

type HeadwordValidator struct {
	localWords map[string]struct{}
}

// NewHeadwordValidator loads an optional word list, one headword per line.
// With an empty path only the shape of a headword is checked.
func NewHeadwordValidator(wordListPath string) (*HeadwordValidator, error) {
	v := &HeadwordValidator{localWords: make(map[string]struct{})}
	if wordListPath == "" {
		return v, nil
	}
	if err := v.loadWordList(wordListPath); err != nil {
		return nil, fmt.Errorf("failed to load word list: %w", err)
	}
	return v, nil
}

func (v *HeadwordValidator) loadWordList(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word != "" && !strings.HasPrefix(word, "#") {
			v.localWords[word] = struct{}{}
		}
	}
	return scanner.Err()
}

// Size is the number of words in the loaded list.
func (v *HeadwordValidator) Size() int {
	return len(v.localWords)
}

// Validate checks that headword is a plausible English entry: it starts
// with a letter and contains only letters, spaces, hyphens, apostrophes
// and dots. When a word list is loaded the headword must also be in it.
func (v *HeadwordValidator) Validate(headword string) error {
	w := strings.TrimSpace(headword)
	if w == "" {
		return fmt.Errorf("empty headword")
	}
	if utf8.RuneCountInString(w) > maxHeadwordLen {
		return fmt.Errorf("headword %q is longer than %d characters", w, maxHeadwordLen)
	}
	for i, r := range w {
		if i == 0 && !unicode.IsLetter(r) {
			return fmt.Errorf("headword %q must start with a letter", w)
		}
		if !unicode.IsLetter(r) && !strings.ContainsRune(" -'.", r) {
			return fmt.Errorf("headword %q contains invalid character %q", w, r)
		}
	}
	if len(v.localWords) > 0 {
		if _, ok := v.localWords[strings.ToLower(w)]; !ok {
			return fmt.Errorf("headword %q not found in word list", w)
		}
	}
	return nil
}
