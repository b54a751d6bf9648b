package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// confirm asks a yes/no question on stdin.
func confirm(question string, def bool) bool {
	suffix := "[y/N]"
	if def {
		suffix = "[Y/n]"
	}
	fmt.Printf("%s %s ", question, suffix)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return def
}

// parseTags parses repeated key=value flags into a map. Later values win.
func parseTags(pairs []string, into map[string]string) (map[string]string, error) {
	tags := into
	if tags == nil {
		tags = make(map[string]string)
	}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid tag %q (expected key=value)", p)
		}
		tags[key] = value
	}
	return tags, nil
}
