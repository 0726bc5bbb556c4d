package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Catalog is the immutable, process-wide index of tool descriptors built once
// from an upstream API document. Lookups are read-only; a schema reload
// produces a whole new Catalog which replaces the old one atomically at the
// store level. Safe for concurrent readers without locking.
type Catalog struct {
	source  string
	builtAt time.Time

	byName   map[string]*ToolDescriptor
	byTag    map[string][]string // normalized tag -> sorted tool names
	keywords map[string][]string // normalized token -> sorted tool names
	names    []string            // all names, ascending
}

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// NewCatalog validates the descriptors and builds the primary and secondary
// indexes. It fails with a SchemaError on any invariant violation: duplicate
// names, duplicate parameter names within a descriptor, empty tag sets, or a
// mismatch between path placeholders and path-location parameters.
func NewCatalog(source string, descriptors []ToolDescriptor) (*Catalog, error) {
	c := &Catalog{
		source:   source,
		builtAt:  time.Now().UTC(),
		byName:   make(map[string]*ToolDescriptor, len(descriptors)),
		byTag:    make(map[string][]string),
		keywords: make(map[string][]string),
	}

	for i := range descriptors {
		d := &descriptors[i]
		if d.Name == "" {
			return nil, &SchemaError{Reason: fmt.Sprintf("operation %s %s produced an empty tool name", d.Method, d.Path)}
		}
		if _, dup := c.byName[d.Name]; dup {
			return nil, &SchemaError{Reason: fmt.Sprintf("duplicate tool name %q", d.Name)}
		}
		if len(d.Tags) == 0 {
			return nil, &SchemaError{Reason: fmt.Sprintf("tool %q has no tags", d.Name)}
		}
		if err := validateParameters(d); err != nil {
			return nil, err
		}

		c.byName[d.Name] = d
		c.names = append(c.names, d.Name)
		for _, tag := range d.Tags {
			norm := NormalizeTag(tag)
			c.byTag[norm] = append(c.byTag[norm], d.Name)
		}
		for token := range tokenSet(d) {
			c.keywords[token] = append(c.keywords[token], d.Name)
		}
	}

	sort.Strings(c.names)
	for tag := range c.byTag {
		sort.Strings(c.byTag[tag])
	}
	for token := range c.keywords {
		sort.Strings(c.keywords[token])
	}
	return c, nil
}

func validateParameters(d *ToolDescriptor) error {
	seen := make(map[string]struct{}, len(d.Parameters))
	pathParams := make(map[string]struct{})
	for _, p := range d.Parameters {
		if _, dup := seen[p.Name]; dup {
			return &SchemaError{Reason: fmt.Sprintf("tool %q declares parameter %q twice", d.Name, p.Name)}
		}
		seen[p.Name] = struct{}{}
		if p.In == LocationPath {
			pathParams[p.Name] = struct{}{}
		}
	}

	placeholders := make(map[string]struct{})
	for _, m := range placeholderRe.FindAllStringSubmatch(d.Path, -1) {
		placeholders[m[1]] = struct{}{}
	}
	for name := range placeholders {
		if _, ok := pathParams[name]; !ok {
			return &SchemaError{Reason: fmt.Sprintf("tool %q path placeholder {%s} has no path parameter", d.Name, name)}
		}
	}
	for name := range pathParams {
		if _, ok := placeholders[name]; !ok {
			return &SchemaError{Reason: fmt.Sprintf("tool %q path parameter %q has no placeholder in %s", d.Name, name, d.Path)}
		}
	}
	return nil
}

// Len returns the number of tools in the catalog.
func (c *Catalog) Len() int { return len(c.names) }

// Source returns the schema source the catalog was built from.
func (c *Catalog) Source() string { return c.source }

// BuiltAt returns the build timestamp.
func (c *Catalog) BuiltAt() time.Time { return c.builtAt }

// Names returns all tool names in ascending order. The returned slice must
// not be modified.
func (c *Catalog) Names() []string { return c.names }

// Get returns the descriptor for name. The descriptor is shared and must be
// treated as read-only.
func (c *Catalog) Get(name string) (*ToolDescriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// NamesByTag returns the sorted tool names carrying the tag,
// case-insensitively. An unknown tag yields nil.
func (c *Catalog) NamesByTag(tag string) []string {
	return c.byTag[NormalizeTag(tag)]
}

// Tags returns every distinct normalized tag, ascending.
func (c *Catalog) Tags() []string {
	out := make([]string, 0, len(c.byTag))
	for tag := range c.byTag {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// NormalizeTag lowercases and trims a category label so tag lookups are
// case-insensitive.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize splits free text into lowercase alphanumeric search tokens.
func Tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

func tokenSet(d *ToolDescriptor) map[string]struct{} {
	set := make(map[string]struct{})
	for _, src := range []string{d.Name, d.Summary} {
		for _, tok := range Tokenize(src) {
			set[tok] = struct{}{}
		}
	}
	for _, tag := range d.Tags {
		for _, tok := range Tokenize(tag) {
			set[tok] = struct{}{}
		}
	}
	return set
}
