// Package registry lists the countries the tracker knows about.
package registry

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/five82/passport/internal/visits"
)

//go:embed countries.yaml
var embedded []byte

// Country is one registry entry.
type Country struct {
	Name   string      `yaml:"name"`
	Code   visits.Code `yaml:"code"`
	Region string      `yaml:"region"`
}

// Default returns the built-in registry sorted by name.
func Default() []Country {
	countries, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("embedded registry: %v", err))
	}
	return countries
}

// Raw returns the serialized built-in registry.
func Raw() []byte { return slices.Clone(embedded) }

// Load reads a registry file, falling back to the built-in registry when
// path is empty.
func Load(path string) ([]Country, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML registry entries. Codes are canonicalised; duplicates
// and entries with invalid codes are rejected.
func Parse(data []byte) ([]Country, error) {
	var raw []struct {
		Name   string `yaml:"name"`
		Code   string `yaml:"code"`
		Region string `yaml:"region"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	seen := make(map[visits.Code]bool, len(raw))
	countries := make([]Country, 0, len(raw))
	for i, entry := range raw {
		code, err := visits.ParseCode(entry.Code)
		if err != nil {
			return nil, fmt.Errorf("registry entry %d (%s): %w", i, entry.Name, err)
		}
		if seen[code] {
			return nil, fmt.Errorf("registry entry %d: duplicate code %s", i, code)
		}
		seen[code] = true
		countries = append(countries, Country{
			Name:   strings.TrimSpace(entry.Name),
			Code:   code,
			Region: strings.TrimSpace(entry.Region),
		})
	}
	SortByName(countries)
	return countries, nil
}

var codePattern = regexp.MustCompile(`\bcode["']?\s*[:=]\s*["']?([A-Za-z]{2})\b`)

// ExtractCodes pulls every `code: XX` style value out of a serialized
// registry regardless of its format, returning distinct uppercase codes in
// ascending order.
func ExtractCodes(raw []byte) []visits.Code {
	seen := make(map[visits.Code]bool)
	var codes []visits.Code
	for _, m := range codePattern.FindAllSubmatch(raw, -1) {
		code, err := visits.ParseCode(string(m[1]))
		if err != nil || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// SortByName orders countries alphabetically using English collation so
// accented names sort next to their plain-letter neighbours.
func SortByName(countries []Country) {
	c := collate.New(language.English, collate.Loose)
	sort.SliceStable(countries, func(i, j int) bool {
		return c.CompareString(countries[i].Name, countries[j].Name) < 0
	})
}

// Regions lists distinct regions in ascending order.
func Regions(countries []Country) []string {
	var regions []string
	for _, c := range countries {
		if c.Region != "" && !slices.Contains(regions, c.Region) {
			regions = append(regions, c.Region)
		}
	}
	slices.Sort(regions)
	return regions
}

// Filter keeps countries in region (empty matches all) whose name or code
// contains query, case-insensitively.
func Filter(countries []Country, region, query string) []Country {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]Country, 0, len(countries))
	for _, c := range countries {
		if region != "" && !strings.EqualFold(c.Region, region) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(c.Name), query) &&
			!strings.Contains(strings.ToLower(string(c.Code)), query) {
			continue
		}
		out = append(out, c)
	}
	return out
}
