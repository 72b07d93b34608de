package pubmed

import "strings"

// BuildQuery builds an E-utilities term from the search form fields: theme
// matches titles, keyword matches titles or abstracts, and journal matches
// the journal name. Blank fields are dropped, and the result is empty when
// every field is blank.
//
//	BuildQuery("sepsis", "lactate", "Critical care")
//	// ("sepsis"[Title] AND "lactate"[Title/Abstract]) AND "Critical care"[Journal]
func BuildQuery(theme, keyword, journal string) string {
	var topic []string
	if t := sanitizeTerm(theme); t != "" {
		topic = append(topic, `"`+t+`"[Title]`)
	}
	if k := sanitizeTerm(keyword); k != "" {
		topic = append(topic, `"`+k+`"[Title/Abstract]`)
	}

	var clauses []string
	switch len(topic) {
	case 1:
		clauses = append(clauses, topic[0])
	case 2:
		clauses = append(clauses, "("+strings.Join(topic, " AND ")+")")
	}
	if j := sanitizeTerm(journal); j != "" {
		clauses = append(clauses, `"`+j+`"[Journal]`)
	}
	return strings.Join(clauses, " AND ")
}

// sanitizeTerm trims a term and removes double quotes so it cannot break
// out of its phrase.
func sanitizeTerm(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}
