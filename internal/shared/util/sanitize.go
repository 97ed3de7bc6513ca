package util

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxFileNameBytes = 255

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName returns a display-safe file name. Path separators become
// underscores, control characters are dropped and traversal is rejected.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return "", ErrInvalidFileName
	}
	for len(s) > maxFileNameBytes {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return s, nil
}
