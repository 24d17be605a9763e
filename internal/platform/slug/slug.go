package slug

import (
	"fmt"
	"regexp"
	"strings"
)

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9_]+`)

// Make turns free text into a pack directory name.
func Make(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = nonAlphaNum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled"
	}
	return s
}

// ValidateDirName rejects names that would escape the packs directory or
// be skipped by discovery.
func ValidateDirName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("pack name is required")
	case name == "." || name == "..":
		return fmt.Errorf("invalid pack name: %q", name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("pack name must not start with a dot: %q", name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("pack name must not contain path separators: %q", name)
	}
	return nil
}
