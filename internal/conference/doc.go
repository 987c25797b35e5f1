// Package conference defines the call-for-papers records produced by a search.
//
// A Record is built from one row-pair of a WikiCFP listing table and is then
// enriched with the optional fields found on the event's detail page. Records
// are plain values: they live for the duration of one search and carry no
// identity beyond it. Result is the status envelope handed to callers.
package conference
