package wikiextract

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"
)

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		url    string
		domain string
		ok     bool
	}{
		{"https://en.wikipedia.org/wiki/Main_Page", "en.wikipedia.org", true},
		{"http://en.wikipedia.org/something", "en.wikipedia.org", true},
		{"not a url", "", false},
		{"https://bad", "", false},
		{"", "", false},
	}
	for _, test := range tests {
		domain, ok := extractDomain(test.url)
		if ok != test.ok || domain != test.domain {
			t.Errorf("extractDomain(%q) = %q, %v; want %q, %v",
				test.url, domain, ok, test.domain, test.ok)
		}
	}
}

func TestParseDumpDate(t *testing.T) {
	got, err := ParseDumpDate("enwiki-20250123-pages-articles-multistream.xml.bz2")
	if err != nil {
		t.Fatalf("Error parsing dump date: %v", err)
	}
	want := time.Date(2025, 1, 23, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	for _, bad := range []string{"invalid", "enwiki-2025-pages.xml.bz2", "enwiki-2025012x-pages.xml.bz2"} {
		if _, err := ParseDumpDate(bad); err == nil {
			t.Errorf("Expected an error for %q, got nil", bad)
		}
	}
}

func TestReadDumpHeader(t *testing.T) {
	header := `<mediawiki><siteinfo>
  <sitename>Wikipedia</sitename>
  <dbname>enwiki</dbname>
  <base>https://en.wikipedia.org/wiki/Main_Page</base>
  <generator>MediaWiki 1.43</generator>
</siteinfo>`
	domain, dbName, err := readDumpHeader(bytes.NewReader(compressBlock(t, header)))
	if err != nil {
		t.Fatalf("Error reading dump header: %v", err)
	}
	if domain != "en.wikipedia.org" {
		t.Errorf("Expected domain en.wikipedia.org, got %q", domain)
	}
	if dbName != "enwiki" {
		t.Errorf("Expected db name enwiki, got %q", dbName)
	}
}

func TestReadDumpHeaderMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no base", "<mediawiki><siteinfo><dbname>enwiki</dbname></siteinfo>"},
		{"no dbname", "<mediawiki><siteinfo><base>https://en.wikipedia.org/wiki/Main_Page</base></siteinfo>"},
		{"base not a url", "<mediawiki><siteinfo><dbname>enwiki</dbname><base>nonsense</base></siteinfo>"},
	}
	for _, test := range tests {
		if _, _, err := readDumpHeader(bytes.NewReader(compressBlock(t, test.header))); err == nil {
			t.Errorf("%v: expected an error, got nil", test.name)
		}
	}
}

func TestDumpMetaRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.yaml")
	meta := DumpMeta{
		Domain:   "en.wikipedia.org",
		DBName:   "enwiki",
		DumpDate: time.Date(2025, 1, 23, 0, 0, 0, 0, time.UTC),
	}
	if err := meta.Save(path); err != nil {
		t.Fatalf("Error saving meta: %v", err)
	}
	got, err := LoadDumpMeta(path)
	if err != nil {
		t.Fatalf("Error loading meta: %v", err)
	}
	if got.Domain != meta.Domain || got.DBName != meta.DBName || !got.DumpDate.Equal(meta.DumpDate) {
		t.Errorf("Round trip gave %+v, want %+v", got, meta)
	}
}
