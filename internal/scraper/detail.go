package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/pfrederiksen/cfp-search/internal/conference"
)

const (
	externalLinkMarker    = "Link:"
	notificationDueHeader = "Notification Due"
	relatedResourcesTitle = "Related Resources"
)

// ParseDetail extracts the enrichment fields from an event detail page.
// Fields that are not present stay empty.
func ParseDetail(r io.Reader, baseURL string) (details conference.Details, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return conference.Details{}, fmt.Errorf("parsing HTML: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			details = conference.Details{}
			err = fmt.Errorf("parse error: %v", p)
		}
	}()

	details.ExternalLink = extractExternalLink(doc)
	details.NotificationDue = extractNotificationDue(doc)
	details.RelatedResources = extractRelatedResources(doc, baseURL)

	return details, nil
}

// extractExternalLink returns the href of the first anchor in the first cell
// mentioning "Link:" that has one.
func extractExternalLink(doc *goquery.Document) string {
	var link string
	doc.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		if !strings.Contains(td.Text(), externalLinkMarker) {
			return true
		}
		href, ok := td.Find("a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		link = strings.TrimSpace(href)
		return false
	})
	return link
}

// extractNotificationDue returns the text of the first td following the
// "Notification Due" header cell.
func extractNotificationDue(doc *goquery.Document) string {
	th := doc.Find("th").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == notificationDueHeader
	}).First()
	if th.Length() == 0 {
		return ""
	}

	td := nextElement(th.Get(0), "td")
	if td == nil {
		return ""
	}
	return strings.TrimSpace(doc.FindNodes(td).Text())
}

// extractRelatedResources reads the links in the first column of the table
// that follows the "Related Resources" heading. Links are deduplicated by
// URL; the first occurrence wins.
func extractRelatedResources(doc *goquery.Document, baseURL string) []conference.RelatedResource {
	heading := doc.Find("h3").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), relatedResourcesTitle)
	}).First()
	if heading.Length() == 0 {
		return nil
	}

	tableNode := nextElement(heading.Get(0), "table")
	if tableNode == nil {
		return nil
	}

	var resources []conference.RelatedResource
	seen := make(map[string]bool)

	doc.FindNodes(tableNode).Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tr.Find("td").First().Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			name := strings.TrimSpace(a.Text())
			href, _ := a.Attr("href")
			resourceURL := baseURL + href

			if seen[resourceURL] {
				return
			}
			seen[resourceURL] = true

			if name == "" {
				return
			}

			resources = append(resources, conference.RelatedResource{
				Name:  name,
				Title: resourceDescription(a, name),
				URL:   resourceURL,
			})
		})
	})

	return resources
}

// resourceDescription returns the text that trails a resource link: the
// adjacent text node, or else the parent's text after the link name up to
// the end of the line.
func resourceDescription(a *goquery.Selection, name string) string {
	node := a.Get(0)
	if sib := node.NextSibling; sib != nil && sib.Type == html.TextNode {
		if desc := strings.TrimSpace(sib.Data); desc != "" {
			return desc
		}
	}

	full := a.Parent().Text()
	_, after, found := strings.Cut(full, name)
	if !found {
		return ""
	}
	line, _, _ := strings.Cut(after, "\n")
	return strings.TrimSpace(line)
}

// nextElement returns the first element named tag that follows n in
// document order, descendants of n included.
func nextElement(n *html.Node, tag string) *html.Node {
	for cur := following(n); cur != nil; cur = following(cur) {
		if cur.Type == html.ElementNode && cur.Data == tag {
			return cur
		}
	}
	return nil
}

// following returns the node after n in a depth-first document walk.
func following(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}
