package wikiextract

import (
	"bufio"
	"encoding/xml"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DumpMeta describes the dump a run was produced from.
type DumpMeta struct {
	Domain   string    `yaml:"domain"`
	DBName   string    `yaml:"db_name"`
	DumpDate time.Time `yaml:"dump_date"`
}

// LoadDumpMeta reads a previously saved metadata record.
func LoadDumpMeta(path string) (DumpMeta, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return DumpMeta{}, errors.Wrapf(err, "reading dump meta %s", path)
	}
	var m DumpMeta
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return DumpMeta{}, errors.Wrapf(err, "parsing dump meta %s", path)
	}
	return m, nil
}

// Save writes the metadata record for later runs and downstream
// consumers.
func (m DumpMeta) Save(path string) error {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "serializing dump meta")
	}
	return errors.Wrapf(os.WriteFile(path, raw, 0644), "writing dump meta %s", path)
}

// readDumpHeader scans the compressed header region that precedes the
// first indexed block for the site domain and database name.
func readDumpHeader(r io.Reader) (domain, dbName string, err error) {
	bz, err := bzip2.NewReader(bufio.NewReader(r), &bzip2.ReaderConfig{})
	if err != nil {
		return "", "", errors.Wrap(err, "opening dump header stream")
	}
	defer bz.Close()

	d := xml.NewDecoder(bz)
	var base string
	var recording *string
	for {
		tok, err := d.Token()
		if err != nil {
			// The header region is a truncated document; EOF mid-element
			// is the normal way out.
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "base":
				base = ""
				recording = &base
			case "dbname":
				dbName = ""
				recording = &dbName
			}
		case xml.CharData:
			if recording != nil {
				*recording += string(t)
			}
		case xml.EndElement:
			recording = nil
		}
	}

	domain, ok := extractDomain(base)
	if !ok {
		return "", "", errors.Errorf("no site domain in dump header (base %q)", base)
	}
	if dbName == "" {
		return "", "", errors.New("no database name in dump header")
	}
	return domain, dbName, nil
}

// extractDomain pulls the host out of a URL: the substring between
// "://" and the next "/".
func extractDomain(url string) (string, bool) {
	_, rest, ok := strings.Cut(url, "://")
	if !ok {
		return "", false
	}
	domain, _, ok := strings.Cut(rest, "/")
	if !ok {
		return "", false
	}
	return domain, true
}

// ParseDumpDate extracts the date from a dump file name such as
// "enwiki-20250123-pages-articles-multistream.xml.bz2".
func ParseDumpDate(filename string) (time.Time, error) {
	parts := strings.Split(filename, "-")
	if len(parts) < 2 || len(parts[1]) != 8 {
		return time.Time{}, errors.Errorf("no dump date in file name %q", filename)
	}
	t, err := time.Parse("20060102", parts[1])
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "no dump date in file name %q", filename)
	}
	return t, nil
}
