package jsonutil

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnrepairable is returned when a truncated payload cannot be coerced
// back into valid JSON.
var ErrUnrepairable = errors.New("jsonutil: unrepairable JSON")

// Repair attempts a structural repair of a truncated JSON document:
// drop a dangling escape, drop the trailing incomplete string, drop a
// dangling key or separator, then re-close every open brace/bracket.
// If the result still does not parse, it progressively cuts back to the
// previous comma and tries again. The repaired document loses at most the
// incomplete trailing fields; everything before them survives intact.
func Repair(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrUnrepairable
	}

	if fixed, ok := tryRepair(s); ok {
		return fixed, nil
	}
	// Progressive fallback: cut at the last comma and retry.
	for i := 0; i < 16; i++ {
		cut := strings.LastIndexByte(s, ',')
		if cut <= 0 {
			break
		}
		s = s[:cut]
		if fixed, ok := tryRepair(s); ok {
			return fixed, nil
		}
	}
	return "", ErrUnrepairable
}

func tryRepair(s string) (string, bool) {
	stack, inString, stringStart, escaped := scanState(s)

	if inString {
		if escaped {
			s = s[:len(s)-1]
		}
		s = s[:stringStart]
		stack, inString, _, _ = scanState(s)
		if inString {
			return "", false
		}
	}

	s = trimDanglingTail(s)

	var b strings.Builder
	b.WriteString(s)
	for i := len(stack) - 1; i >= 0; i-- {
		switch stack[i] {
		case '{':
			b.WriteByte('}')
		case '[':
			b.WriteByte(']')
		}
	}
	out := b.String()
	if !json.Valid([]byte(out)) {
		return "", false
	}
	return out, true
}

// scanState walks the document tracking open containers and string state.
func scanState(s string) (stack []byte, inString bool, stringStart int, escaped bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			stringStart = i
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if n := len(stack); n > 0 && stack[n-1] == '{' {
				stack = stack[:n-1]
			}
		case ']':
			if n := len(stack); n > 0 && stack[n-1] == '[' {
				stack = stack[:n-1]
			}
		}
	}
	return stack, inString, stringStart, escaped
}

// trimDanglingTail removes a trailing comma, or a dangling `"key":` pair left
// behind after an incomplete value was dropped.
func trimDanglingTail(s string) string {
	for {
		s = strings.TrimRight(s, " \t\r\n")
		if s == "" {
			return s
		}
		switch s[len(s)-1] {
		case ',':
			s = s[:len(s)-1]
			continue
		case ':':
			s = s[:len(s)-1]
			s = strings.TrimRight(s, " \t\r\n")
			if key := trailingStringStart(s); key >= 0 {
				s = s[:key]
				continue
			}
			return s
		}
		return s
	}
}

// trailingStringStart returns the index of the opening quote of a string that
// ends the input, or -1.
func trailingStringStart(s string) int {
	if len(s) < 2 || s[len(s)-1] != '"' {
		return -1
	}
	for i := len(s) - 2; i >= 0; i-- {
		if s[i] != '"' {
			continue
		}
		// An even run of preceding backslashes means the quote is unescaped.
		bs := 0
		for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
			bs++
		}
		if bs%2 == 0 {
			return i
		}
	}
	return -1
}
