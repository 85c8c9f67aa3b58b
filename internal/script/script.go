// Package script loads GreasySpoon server scripts and their metadata block.
package script

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	blockStart = "==ServerScript=="
	blockEnd   = "==/ServerScript=="
)

// Script is a parsed server script.
type Script struct {
	Name          string
	Description   string
	Enabled       bool
	Order         int
	ResponseCodes []string
	Include       []*regexp.Regexp
	Exclude       []*regexp.Regexp
	Extra         map[string][]string
	Source        string
	Path          string
}

// LoadFile reads and parses the script at path.
func LoadFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	s, err := Parse(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// Parse reads the metadata block of src. name is used when the block has no
// @name. A script without a block is enabled and matches every URL.
func Parse(name string, src []byte) (*Script, error) {
	s := &Script{
		Name:    name,
		Enabled: true,
		Extra:   map[string][]string{},
		Source:  string(src),
	}

	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inBlock, sawBlock, lineNo := false, false, 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "//") {
			if inBlock && line != "" {
				return nil, fmt.Errorf("line %d: metadata block interrupted by code", lineNo)
			}
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "//"))

		switch {
		case line == blockStart:
			if sawBlock {
				return nil, fmt.Errorf("line %d: duplicate %s block", lineNo, blockStart)
			}
			inBlock, sawBlock = true, true
			continue
		case line == blockEnd:
			if !inBlock {
				return nil, fmt.Errorf("line %d: %s without %s", lineNo, blockEnd, blockStart)
			}
			inBlock = false
			continue
		}
		if !inBlock || !strings.HasPrefix(line, "@") {
			continue
		}

		key, value, _ := strings.Cut(line[1:], " ")
		if err := s.set(strings.ToLower(key), strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning script: %w", err)
	}
	if inBlock {
		return nil, fmt.Errorf("unterminated %s block", blockStart)
	}

	if len(s.Include) == 0 {
		s.Include = []*regexp.Regexp{regexp.MustCompile(`^(?:.*)$`)}
	}
	return s, nil
}

func (s *Script) set(key, value string) error {
	switch key {
	case "name":
		if value != "" {
			s.Name = value
		}
	case "description":
		s.Description = value
	case "status":
		switch strings.ToLower(value) {
		case "on", "enabled", "true":
			s.Enabled = true
		case "off", "disabled", "false":
			s.Enabled = false
		default:
			return fmt.Errorf("invalid @status %q (must be on or off)", value)
		}
	case "order":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid @order %q: %w", value, err)
		}
		s.Order = n
	case "responsecode":
		for _, code := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' }) {
			if _, err := strconv.Atoi(code); err != nil {
				return fmt.Errorf("invalid @responsecode %q", code)
			}
			s.ResponseCodes = append(s.ResponseCodes, code)
		}
	case "include", "exclude":
		re, err := regexp.Compile(`^(?:` + value + `)$`)
		if err != nil {
			return fmt.Errorf("invalid @%s pattern %q: %w", key, value, err)
		}
		if key == "include" {
			s.Include = append(s.Include, re)
		} else {
			s.Exclude = append(s.Exclude, re)
		}
	default:
		s.Extra[key] = append(s.Extra[key], value)
	}
	return nil
}

// Matches reports whether the script should run for url.
func (s *Script) Matches(url string) bool {
	if !s.Enabled {
		return false
	}
	for _, re := range s.Exclude {
		if re.MatchString(url) {
			return false
		}
	}
	for _, re := range s.Include {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// AcceptsStatus reports whether code is one of the @responsecode values.
// A script without @responsecode accepts every status.
func (s *Script) AcceptsStatus(code string) bool {
	if len(s.ResponseCodes) == 0 {
		return true
	}
	for _, c := range s.ResponseCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Patterns returns the include and exclude patterns as written.
func (s *Script) Patterns() (include, exclude []string) {
	for _, re := range s.Include {
		include = append(include, unwrap(re))
	}
	for _, re := range s.Exclude {
		exclude = append(exclude, unwrap(re))
	}
	return include, exclude
}

func unwrap(re *regexp.Regexp) string {
	return strings.TrimSuffix(strings.TrimPrefix(re.String(), "^(?:"), ")$")
}
