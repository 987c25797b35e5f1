package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/cfp-search/internal/conference"
	"github.com/pfrederiksen/cfp-search/internal/logger"
)

// TableClassifier reports whether a table holds listing results.
// The listing page nests its results among many layout tables.
type TableClassifier func(table *goquery.Selection) bool

const (
	listingTableSelector = `table[cellpadding="2"][cellspacing="1"]`
	listingHeaderRow     = `tr[bgcolor="#bbbbbb"]`
)

// DefaultTableClassifier matches WikiCFP result tables: cellpadding 2,
// cellspacing 1 and a grey header row.
func DefaultTableClassifier(table *goquery.Selection) bool {
	return table.Is(listingTableSelector) && table.Find(listingHeaderRow).Length() > 0
}

// SelectorClassifier matches tables selected by a CSS selector.
func SelectorClassifier(selector string) TableClassifier {
	return func(table *goquery.Selection) bool {
		return table.Is(selector)
	}
}

// ParseListing extracts conference records from a search results page.
//
// In each matching table the first row is the header. The remaining rows are
// read in pairs; a trailing unpaired row is dropped. Records come back
// without detail-page enrichment.
func ParseListing(r io.Reader, baseURL string, classify TableClassifier) ([]conference.Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	if classify == nil {
		classify = DefaultTableClassifier
	}

	records := make([]conference.Record, 0)
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		if !classify(table) {
			return
		}
		records = append(records, parseTable(table, baseURL)...)
	})

	return records, nil
}

// parseTable pairs the rows after the header row.
func parseTable(table *goquery.Selection, baseURL string) []conference.Record {
	rows := table.Find("tr")
	records := make([]conference.Record, 0, rows.Length()/2)

	for i := 1; i+1 < rows.Length(); i += 2 {
		rec, err := parseRowPair(rows.Eq(i), rows.Eq(i+1), baseURL)
		if err != nil {
			logger.Debug("skipping listing row pair", logger.Fields{
				"row":   i,
				"error": err.Error(),
			})
			continue
		}
		records = append(records, rec)
	}

	return records
}

// parseRowPair builds a record from a name/title row and a
// date/location/deadline row.
func parseRowPair(first, second *goquery.Selection, baseURL string) (rec conference.Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("parse error: %v", p)
		}
	}()

	firstCells := first.Find("td")
	if firstCells.Length() == 0 {
		return conference.Record{}, fmt.Errorf("row has no cells")
	}

	// The name cell spans both rows and links to the detail page
	nameCell := firstCells.Eq(0)
	if link := nameCell.Find("a").First(); link.Length() > 0 {
		rec.Name = strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		rec.WikiCFPLink = baseURL + href
	} else {
		rec.Name = strings.TrimSpace(nameCell.Text())
	}

	title := ""
	if firstCells.Length() > 1 {
		title = strings.TrimSpace(firstCells.Eq(1).Text())
	}

	// Cells are positional: when, where, deadline
	if secondCells := second.Find("td"); secondCells.Length() >= 3 {
		rec.When = strings.TrimSpace(secondCells.Eq(0).Text())
		rec.Where = strings.TrimSpace(secondCells.Eq(1).Text())
		rec.SubmissionDeadline = strings.TrimSpace(secondCells.Eq(2).Text())
	}

	if title == "" {
		title = conference.SynthesizeTitle(rec.Where, rec.SubmissionDeadline)
	}
	rec.Title = title

	return rec, nil
}
