// Package config provides INI-style configuration parsing for the
// host: sections with typed option getters, defaults, and validation.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"marlin-go-migration/pkg/errors"
)

// Config holds the parsed sections of a host configuration file.
type Config struct {
	sections map[string]*Section
	order    []string
}

// New creates an empty Config.
func New() *Config {
	return &Config{sections: make(map[string]*Section)}
}

// Load reads a configuration file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: unable to open %s: %w", path, err)
	}
	defer f.Close()
	c := New()
	if err := c.parse(f.Name(), bufio.NewScanner(f)); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse reads configuration from a string, mainly for tests.
func Parse(text string) (*Config, error) {
	c := New()
	if err := c.parse("<string>", bufio.NewScanner(strings.NewReader(text))); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) parse(name string, scanner *bufio.Scanner) error {
	var current *Section
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if idx := strings.IndexAny(line, "#;"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
			if line == "" {
				continue
			}
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			header := strings.TrimSpace(line[1 : len(line)-1])
			if header == "" {
				return fmt.Errorf("config: empty section header at line %d in %s", lineNum, name)
			}
			current = c.addSection(header)
			continue
		}
		if current == nil {
			return fmt.Errorf("config: option outside any section at line %d in %s", lineNum, name)
		}
		var key, value string
		if idx := strings.IndexAny(line, ":="); idx >= 0 {
			key = strings.TrimSpace(line[:idx])
			value = strings.TrimSpace(line[idx+1:])
		} else {
			return fmt.Errorf("config: malformed option at line %d in %s", lineNum, name)
		}
		if key == "" {
			return fmt.Errorf("config: empty option name at line %d in %s", lineNum, name)
		}
		current.options[strings.ToLower(key)] = value
	}
	return scanner.Err()
}

func (c *Config) addSection(name string) *Section {
	key := strings.ToLower(name)
	if s, ok := c.sections[key]; ok {
		return s
	}
	s := &Section{name: name, options: make(map[string]string)}
	c.sections[key] = s
	c.order = append(c.order, key)
	return s
}

// HasSection reports whether a section is present.
func (c *Config) HasSection(name string) bool {
	_, ok := c.sections[strings.ToLower(name)]
	return ok
}

// Section returns a named section, or an empty one so that every
// getter falls back to its default.
func (c *Config) Section(name string) *Section {
	if s, ok := c.sections[strings.ToLower(name)]; ok {
		return s
	}
	return &Section{name: name, options: make(map[string]string)}
}

// SectionNames returns the sections in file order.
func (c *Config) SectionNames() []string {
	names := make([]string, 0, len(c.order))
	for _, key := range c.order {
		names = append(names, c.sections[key].name)
	}
	return names
}

// Section provides typed access to the options of one config section.
type Section struct {
	name    string
	options map[string]string
}

// Name returns the section name.
func (s *Section) Name() string { return s.name }

// HasOption reports whether an option is present.
func (s *Section) HasOption(option string) bool {
	_, ok := s.options[strings.ToLower(option)]
	return ok
}

// Get returns a string option, or fallback when absent.
func (s *Section) Get(option, fallback string) string {
	if v, ok := s.options[strings.ToLower(option)]; ok {
		return v
	}
	return fallback
}

// GetRequired returns a string option or an error when absent.
func (s *Section) GetRequired(option string) (string, error) {
	if v, ok := s.options[strings.ToLower(option)]; ok {
		return v, nil
	}
	return "", errors.ConfigOptionError(s.name, option)
}

// GetInt returns an integer option, or fallback when absent.
func (s *Section) GetInt(option string, fallback int) (int, error) {
	v, ok := s.options[strings.ToLower(option)]
	if !ok {
		return fallback, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errors.ConfigValidationError(s.name, option, "must be an integer, got '"+v+"'")
	}
	return i, nil
}

// GetBool returns a boolean option, or fallback when absent. Accepts
// true/false, yes/no, on/off, 1/0.
func (s *Section) GetBool(option string, fallback bool) (bool, error) {
	v, ok := s.options[strings.ToLower(option)]
	if !ok {
		return fallback, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, errors.ConfigValidationError(s.name, option, "must be a boolean, got '"+v+"'")
}
