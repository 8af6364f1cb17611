// Package ruleset loads rule tables from YAML or JSON and ships the built-in
// biological and artifact tables.
package ruleset

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/arbovm/levenshtein"
	"gopkg.in/yaml.v3"

	"github.com/anime-shed/frame-classifier/pkg/models"
	"github.com/anime-shed/frame-classifier/pkg/validation"
)

const (
	Biological = "biological"
	Artifact   = "artifact"
)

// ErrUnknownTable is returned for a built-in name that does not exist.
var ErrUnknownTable = errors.New("unknown rule table")

//go:embed tables/*.yaml
var builtinFS embed.FS

// Parse decodes and validates a rule table. JSON documents are accepted as YAML.
// Unknown keys are rejected so typos in hand-edited tables surface at startup.
func Parse(data []byte) (*models.RuleTable, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var table models.RuleTable
	if err := dec.Decode(&table); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("rule table document is empty")
		}
		return nil, fmt.Errorf("failed to parse rule table: %w", err)
	}
	table.Name = strings.TrimSpace(table.Name)

	if issues := validation.NewRuleTableValidator().Validate(&table); len(issues) > 0 {
		return nil, fmt.Errorf("rule table %q is invalid: %w", table.Name, validation.IssuesError(issues))
	}
	return &table, nil
}

// BuiltinNames lists the embedded tables in sorted order.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("tables")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Builtin returns a fresh copy of an embedded table.
func Builtin(name string) (*models.RuleTable, error) {
	data, err := builtinFS.ReadFile(path.Join("tables", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return Parse(data)
}

// Builtins parses every embedded table.
func Builtins() ([]*models.RuleTable, error) {
	names := BuiltinNames()
	tables := make([]*models.RuleTable, 0, len(names))
	for _, name := range names {
		t, err := Builtin(name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// Suggest returns the candidate closest to name by edit distance, or "" when
// nothing is reasonably close.
func Suggest(name string, candidates []string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.Distance(name, strings.ToLower(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}

	limit := len(name) / 3
	if limit < 2 {
		limit = 2
	}
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}
