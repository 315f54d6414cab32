// Package wikiextract turns a multistream wikipedia xml dump and its
// companion SQL table exports into page-addressable records.
//
// The dumps are available from the wikimedia group here:
//
//	http://dumps.wikimedia.org/
//
// The extractor works from the multistream variant of the dump, whose
// index file lists the byte offsets of independently compressed blocks,
// so blocks can be decompressed and scanned in parallel. Tracked pages
// are written out one file apiece; redirects, page ids and inbound
// link counts are written as JSON maps for downstream consumers.
//
// See the example program in tools/extract for how the pieces fit
// together.
package wikiextract
