package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Section is a top-level grouping of the news index.
type Section string

const (
	SectionEspana        Section = "espana"
	SectionInternacional Section = "internacional"
	SectionHumor         Section = "humor"
)

// Sections lists the sections in the order the grid is populated.
var Sections = []Section{SectionEspana, SectionInternacional, SectionHumor}

// Manifest describes the news index published alongside the site.
type Manifest struct {
	Espana        Categories `json:"espana"`
	Internacional Categories `json:"internacional"`
	Humor         []string   `json:"humor"`
}

// Category is a named, ordered list of article references.
type Category struct {
	Name       string
	References []string
}

// Categories keeps the categories of a section in the order they appear in
// the index document.
type Categories []Category

// UnmarshalJSON implements json.Unmarshaler. The standard map decoding would
// lose the key order, so the object is walked token by token.
func (c *Categories) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("categories must be an object, got %v", tok)
	}

	var categories Categories
	for dec.More() {
		if tok, err = dec.Token(); err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected category key %v", tok)
		}

		var refs []string
		if err = dec.Decode(&refs); err != nil {
			return fmt.Errorf("category %s: %w", name, err)
		}

		categories = append(categories, Category{Name: name, References: refs})
	}

	// Consume the closing brace.
	if _, err = dec.Token(); err != nil {
		return err
	}

	*c = categories
	return nil
}

// ParseManifest decodes a news index document. Every section must be present
// and non-null, an empty section is written as {} or [].
func ParseManifest(data []byte) (*Manifest, error) {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, err
	}
	for _, section := range Sections {
		raw, ok := sections[string(section)]
		if !ok {
			return nil, fmt.Errorf("missing section %s", section)
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, fmt.Errorf("section %s is null", section)
		}
	}

	m := new(Manifest)
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Jobs flattens the manifest into card jobs, in the order they must be
// initiated: espana categories, internacional categories, then humor.
// If qualifyTags is true, the tag of categorised references also carries the
// category name as a second CSS class.
func (m *Manifest) Jobs(qualifyTags bool) []Job {
	var jobs []Job

	add := func(ref string, section Section, category string) {
		tag := string(section)
		if qualifyTags && len(category) > 0 {
			tag = fmt.Sprintf("%s %s", section, category)
		}

		jobs = append(jobs, Job{
			Index:     len(jobs),
			Reference: ref,
			Section:   section,
			Category:  category,
			Tag:       tag,
		})
	}

	for _, s := range []struct {
		section    Section
		categories Categories
	}{
		{SectionEspana, m.Espana},
		{SectionInternacional, m.Internacional},
	} {
		for _, c := range s.categories {
			for _, ref := range c.References {
				add(ref, s.section, c.Name)
			}
		}
	}

	for _, ref := range m.Humor {
		add(ref, SectionHumor, "")
	}

	return jobs
}

// Job is a single card to build.
type Job struct {
	// Position of the job in the initiation order.
	Index     int
	Reference string
	Section   Section
	// Empty for humor.
	Category string
	// Used verbatim as a CSS class next to the base "card" class.
	Tag string
}

// ArticleFields holds the text extracted from an article document.
type ArticleFields struct {
	Title     string
	Summary   string
	DateLabel string
}

// Card is the unit rendered in the news grid.
type Card struct {
	Job
	Fields ArticleFields
	// Date parsed from the date label, nil if it couldn't be parsed.
	Date *time.Time
	// Err is set on placeholder cards standing in for a failed build.
	Err error
}
