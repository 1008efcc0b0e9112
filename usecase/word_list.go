package usecase

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type topic struct {
	Steps []struct {
		Words []struct {
			EN string `json:"en"`
		} `json:"words"`
	} `json:"steps"`
}

// ParseWordList reads words from a topics JSON document, a JSON string array,
// or plain text with one entry per line. Lines starting with # are ignored.
func ParseWordList(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read word list: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return parseJSONWords(trimmed)
	}

	var words []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan word list: %w", err)
	}
	return words, nil
}

func parseJSONWords(data []byte) ([]string, error) {
	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		return plain, nil
	}

	var topics []topic
	if err := json.Unmarshal(data, &topics); err != nil {
		return nil, fmt.Errorf("failed to parse word list JSON: %w", err)
	}

	var words []string
	for _, t := range topics {
		for _, step := range t.Steps {
			for _, w := range step.Words {
				if w.EN != "" {
					words = append(words, w.EN)
				}
			}
		}
	}
	return words, nil
}
