// Package pubmed is a client for the NCBI PubMed E-utilities API.
//
// A search is two requests: esearch.fcgi resolves the query to PMIDs, and
// efetch.fcgi returns the article XML for those PMIDs.
// API documentation: https://www.ncbi.nlm.nih.gov/books/NBK25499/
package pubmed

import "encoding/xml"

// ESearchResult is the esearch.fcgi response.
type ESearchResult struct {
	XMLName   xml.Name   `xml:"eSearchResult"`
	Count     int        `xml:"Count"`
	RetMax    int        `xml:"RetMax"`
	RetStart  int        `xml:"RetStart"`
	IDList    IDList     `xml:"IdList"`
	ErrorList *ErrorList `xml:"ErrorList,omitempty"`
	// ERROR is set on malformed queries.
	ERROR string `xml:"ERROR,omitempty"`
}

// IDList contains the PMIDs matched by a search.
type IDList struct {
	IDs []string `xml:"Id"`
}

// ErrorList contains query terms the API could not resolve.
type ErrorList struct {
	PhraseNotFound []string `xml:"PhraseNotFound,omitempty"`
	FieldNotFound  []string `xml:"FieldNotFound,omitempty"`
}

// PubmedArticleSet is the efetch.fcgi response.
type PubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []PubmedArticle `xml:"PubmedArticle"`
}

// PubmedArticle is a single article.
type PubmedArticle struct {
	MedlineCitation MedlineCitation `xml:"MedlineCitation"`
}

// MedlineCitation holds the bibliographic record.
type MedlineCitation struct {
	PMID    string  `xml:"PMID"`
	Article Article `xml:"Article"`
}

// Article contains the article metadata.
type Article struct {
	Journal      Journal       `xml:"Journal"`
	ArticleTitle InnerText     `xml:"ArticleTitle"`
	Abstract     *Abstract     `xml:"Abstract,omitempty"`
	AuthorList   *AuthorList   `xml:"AuthorList,omitempty"`
	ArticleDate  []ArticleDate `xml:"ArticleDate,omitempty"`
}

// InnerText captures element text including inline markup such as <i> or
// <sup>, which titles and abstracts often contain.
type InnerText struct {
	Inner string `xml:",innerxml"`
}

// Journal contains journal information.
type Journal struct {
	JournalIssue    JournalIssue `xml:"JournalIssue"`
	Title           string       `xml:"Title,omitempty"`
	ISOAbbreviation string       `xml:"ISOAbbreviation,omitempty"`
}

// JournalIssue contains the issue publication date.
type JournalIssue struct {
	PubDate PubDate `xml:"PubDate"`
}

// PubDate is either a structured date or a free-form MedlineDate such as
// "2020 Jan-Feb".
type PubDate struct {
	Year        string `xml:"Year,omitempty"`
	Month       string `xml:"Month,omitempty"`
	MedlineDate string `xml:"MedlineDate,omitempty"`
}

// Abstract may be split into labelled sections.
type Abstract struct {
	AbstractTexts []InnerText `xml:"AbstractText"`
}

// AuthorList contains the list of authors.
type AuthorList struct {
	Authors []Author `xml:"Author"`
}

// Author is a person or a collective.
type Author struct {
	ValidYN         string            `xml:"ValidYN,attr,omitempty"`
	LastName        string            `xml:"LastName,omitempty"`
	ForeName        string            `xml:"ForeName,omitempty"`
	CollectiveName  string            `xml:"CollectiveName,omitempty"`
	AffiliationInfo []AffiliationInfo `xml:"AffiliationInfo,omitempty"`
}

// AffiliationInfo contains author affiliation information.
type AffiliationInfo struct {
	Affiliation string `xml:"Affiliation"`
}

// ArticleDate is the electronic publication date.
type ArticleDate struct {
	DateType string `xml:"DateType,attr,omitempty"`
	Year     string `xml:"Year"`
}
