package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Field names exposed by Paper through the Record interface.
const (
	FieldPMID         = "pmid"
	FieldTitle        = "title"
	FieldAbstract     = "abstract"
	FieldJournal      = "journal"
	FieldYear         = "year"
	FieldAuthors      = "authors"
	FieldURL          = "url"
	FieldImpactFactor = "impact_factor"
)

// PubMedArticleURL is the canonical article URL prefix.
const PubMedArticleURL = "https://pubmed.ncbi.nlm.nih.gov/"

var pmidPattern = regexp.MustCompile(`(?i)pubmed\.ncbi\.nlm\.nih\.gov/(\d+)`)

// PMIDFromURL extracts the PubMed ID from an article URL.
func PMIDFromURL(url string) (string, bool) {
	m := pmidPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Author represents a paper author with optional affiliation.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// String returns a formatted string representation of the author.
func (a Author) String() string {
	if a.Affiliation == "" {
		return a.Name
	}
	return a.Name + " (" + a.Affiliation + ")"
}

// Paper is a search hit from the literature database. It implements Record
// so it can be ranked directly.
type Paper struct {
	PMID     string   `json:"pmid"`
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	Journal  string   `json:"journal"`
	Year     int      `json:"year,omitempty"`
	Authors  []Author `json:"authors,omitempty"`
	URL      string   `json:"url"`

	// ImpactFactor is nil until the paper has been ranked, and stays nil when
	// the journal metric is unknown.
	ImpactFactor *float64 `json:"impact_factor"`

	// Extra holds fields set through SetField that have no struct field.
	Extra map[string]any `json:"-"`
}

// AuthorNames returns the author names joined with ", ".
func (p *Paper) AuthorNames() string {
	names := make([]string, len(p.Authors))
	for i, a := range p.Authors {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// Field implements Record.
func (p *Paper) Field(name string) (any, bool) {
	switch name {
	case FieldPMID:
		return p.PMID, true
	case FieldTitle:
		return p.Title, true
	case FieldAbstract:
		return p.Abstract, true
	case FieldJournal:
		return p.Journal, true
	case FieldYear:
		return p.Year, true
	case FieldAuthors:
		return p.AuthorNames(), true
	case FieldURL:
		return p.URL, true
	case FieldImpactFactor:
		if p.ImpactFactor == nil {
			return nil, true
		}
		return *p.ImpactFactor, true
	}
	v, ok := p.Extra[name]
	return v, ok
}

// SetField implements Record. Setting impact_factor to anything other than a
// float64 clears it.
func (p *Paper) SetField(name string, v any) {
	switch name {
	case FieldPMID:
		p.PMID = fmt.Sprint(v)
	case FieldTitle:
		p.Title = fmt.Sprint(v)
	case FieldAbstract:
		p.Abstract = fmt.Sprint(v)
	case FieldJournal:
		p.Journal = fmt.Sprint(v)
	case FieldURL:
		p.URL = fmt.Sprint(v)
	case FieldYear:
		if y, ok := v.(int); ok {
			p.Year = y
		}
	case FieldImpactFactor:
		if f, ok := v.(float64); ok {
			p.ImpactFactor = &f
		} else {
			p.ImpactFactor = nil
		}
	default:
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[name] = v
	}
}

// Clone implements Record.
func (p *Paper) Clone() Record {
	c := *p
	c.Authors = append([]Author(nil), p.Authors...)
	if p.ImpactFactor != nil {
		f := *p.ImpactFactor
		c.ImpactFactor = &f
	}
	if p.Extra != nil {
		c.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}
