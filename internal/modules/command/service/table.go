package service

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"memestickers/internal/modules/command/domain"
)

const maxSuggestions = 3

type ShortcutSpec struct {
	Pack        string
	Name        string
	Command     string
	Description string
	Active      bool
}

// Table is the immutable command lookup. Built-ins always win over a
// shortcut of the same name.
type Table struct {
	entries map[string]domain.Entry
	order   []string
}

func NewTable(commands []domain.Command, shortcuts []ShortcutSpec) *Table {
	t := &Table{entries: make(map[string]domain.Entry, len(commands)+len(shortcuts))}
	for _, c := range commands {
		t.add(domain.Entry{Command: c, Active: true})
	}
	sorted := append([]ShortcutSpec(nil), shortcuts...)
	sort.Slice(sorted, func(i, j int) bool { return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name) })
	for _, s := range sorted {
		name := strings.ToLower(s.Name)
		if _, taken := t.entries[name]; taken {
			continue
		}
		summary := s.Description
		if summary == "" {
			summary = "Shortcut for " + s.Command
		}
		t.add(domain.Entry{
			Command:  domain.Command{Name: name, Usage: name + " [text]", Summary: summary},
			Shortcut: true,
			Pack:     s.Pack,
			Target:   s.Command,
			Active:   s.Active,
		})
	}
	return t
}

func (t *Table) add(e domain.Entry) {
	t.entries[e.Name] = e
	t.order = append(t.order, e.Name)
}

// Lookup resolves name case-insensitively, including inactive shortcuts.
func (t *Table) Lookup(name string) (domain.Entry, bool) {
	e, ok := t.entries[strings.ToLower(name)]
	return e, ok
}

// Entries returns built-ins in declaration order followed by shortcuts
// sorted by name.
func (t *Table) Entries() []domain.Entry {
	out := make([]domain.Entry, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.entries[name])
	}
	return out
}

// Suggest returns up to three active command names resembling word.
func (t *Table) Suggest(word string) []string {
	names := make([]string, 0, len(t.order))
	for _, name := range t.order {
		if t.entries[name].Active {
			names = append(names, name)
		}
	}
	return Suggest(word, names)
}

// Suggest ranks candidates by fuzzy match against word, best first.
func Suggest(word string, candidates []string) []string {
	word = strings.TrimSpace(word)
	if word == "" || len(candidates) == 0 {
		return nil
	}
	out := []string{}
	seen := map[string]bool{}
	for _, m := range fuzzy.Find(strings.ToLower(word), lowered(candidates)) {
		name := candidates[m.Index]
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
		if len(out) == maxSuggestions {
			return out
		}
	}
	// A typo rarely survives subsequence matching; fall back to a shared
	// prefix.
	prefix := strings.ToLower(word[:1])
	for _, c := range candidates {
		if !seen[c] && strings.HasPrefix(strings.ToLower(c), prefix) {
			seen[c] = true
			out = append(out, c)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

func lowered(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
