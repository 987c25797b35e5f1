// Package scraper provides HTTP fetching and HTML parsing for WikiCFP call-for-papers listings.
//
// A search fetches one listing page for a keyword query, locates the result
// tables among the page's layout tables, and pairs adjacent rows into
// conference records. Each record's detail page is then fetched to pick up the
// notification date, the conference homepage and related-resource links.
// Failures are contained per step. An unreachable search page yields no
// records, and a record whose detail page fails keeps its listing fields.
package scraper
