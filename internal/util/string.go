package util

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// TruncateRunes returns the first n characters of s and whether anything was
// dropped.
func TruncateRunes(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:n]), true
}

func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, path[2:]), nil
}
