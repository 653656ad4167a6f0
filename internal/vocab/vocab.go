// Package vocab reads vocabulary files used for restricted-vocabulary
// recognition.
//
// A vocabulary file (.voc) lists one phrase per line. Lines starting with
// "#" are comments. A line may contain "|"-separated alternatives, each of
// which becomes its own phrase. Phrases are lowercased, matching what the
// recognizer's grammar expects.
package vocab

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadFile parses a vocabulary file into a list of phrases.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vocabulary file: %w", err)
	}
	defer f.Close()

	var phrases []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, alt := range strings.Split(line, "|") {
			alt = strings.ToLower(strings.TrimSpace(alt))
			if alt != "" {
				phrases = append(phrases, alt)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading vocabulary file: %w", err)
	}

	if len(phrases) == 0 {
		return nil, fmt.Errorf("vocabulary file %s contains no phrases", path)
	}
	return phrases, nil
}

// Resolve locates a vocabulary file by name across the given search
// directories. The name may be given with or without the .voc extension.
// The first match wins; an empty string is returned when nothing matches.
func Resolve(name string, searchDirs []string) string {
	if !strings.HasSuffix(name, ".voc") {
		name += ".voc"
	}
	for _, dir := range searchDirs {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
