package wikiextract

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// The two SQL export schemas fed through the generic tuple engine.
var (
	// lt_id, lt_namespace, lt_title
	linkTargetSchema = []Field{
		{Kind: FieldUint},
		{Kind: FieldInt},
		{Kind: FieldString, FoldUnderscores: true},
	}
	// pl_from, pl_from_namespace, pl_target_id
	pageLinkSchema = []Field{
		{Kind: FieldUint},
		{Kind: FieldUint},
		{Kind: FieldUint},
	}
)

const (
	linkTargetPreamble = "INSERT INTO `linktarget` VALUES "
	pageLinkPreamble   = "INSERT INTO `pagelinks` VALUES "
)

// ParseLinkTargets decodes linktarget tuples from r into out, keeping
// only rows in the main namespace whose decoded title names a tracked
// entity page.
func ParseLinkTargets(r io.ByteReader, tracked map[PageName]string, out map[int64]PageName) error {
	var parsed int64
	err := ParseTuples(r, linkTargetSchema, func(row Row) error {
		if row.Ints[1] == 0 {
			page := PageName{Name: row.Strs[0]}
			if _, ok := tracked[page]; ok {
				out[row.Ints[0]] = page
			}
		}
		parsed++
		if parsed%10_000_000 == 0 {
			log.Infof("parsed %s linktarget tuples", humanize.Comma(parsed))
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "parsing linktarget tuples")
	}
	log.Infof("parsed %s linktarget tuples", humanize.Comma(parsed))
	return nil
}

// ParsePageLinks decodes pagelinks tuples from r, incrementing the
// inbound count of every tracked entity a row's destination id
// resolves to through targets.
func ParsePageLinks(r io.ByteReader, targets map[int64]PageName, counts map[PageName]int) error {
	var parsed int64
	err := ParseTuples(r, pageLinkSchema, func(row Row) error {
		if page, ok := targets[row.Ints[2]]; ok {
			if _, ok := counts[page]; ok {
				counts[page]++
			}
		}
		parsed++
		if parsed%100_000_000 == 0 {
			log.Infof("parsed %s pagelink tuples", humanize.Comma(parsed))
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "parsing pagelink tuples")
	}
	log.Infof("parsed %s pagelink tuples", humanize.Comma(parsed))
	return nil
}

// InboundLinkCounts produces the inbound reference count of every
// tracked entity page, seeded at zero so entities nothing links to are
// still present in the result.
//
// The linktarget dump is read first to learn which numeric link-target
// ids stand for tracked entities (cached, since it depends only on the
// tracked set), then the pagelinks dump is streamed against that map.
// Both passes are single sequential streams: unlike the xml dump there
// is no block index to give safe parallel entry points.
func InboundLinkCounts(linkTargetsPath, pageLinksPath, outputPath string, tracked map[PageName]string) (map[PageName]int, error) {
	countsPath := filepath.Join(outputPath, linkCountFile)
	if fileExists(countsPath) {
		counts := map[PageName]int{}
		if err := readJSON(countsPath, &counts); err != nil {
			return nil, err
		}
		log.Infof("loaded inbound link counts for %s entities from %s",
			humanize.Comma(int64(len(counts))), countsPath)
		return counts, nil
	}

	targets, err := loadLinkTargets(linkTargetsPath, filepath.Join(outputPath, linkTargetFile), tracked)
	if err != nil {
		return nil, err
	}

	counts := make(map[PageName]int, len(tracked))
	for page := range tracked {
		counts[page] = 0
	}

	r, closeStream, err := openGzip(pageLinksPath)
	if err != nil {
		return nil, err
	}
	defer closeStream()

	if err := SkipUntilPrefix(r, []byte(pageLinkPreamble)); err != nil {
		return nil, errors.Wrapf(err, "in %s", pageLinksPath)
	}
	if err := ParsePageLinks(r, targets, counts); err != nil {
		return nil, errors.Wrapf(err, "in %s", pageLinksPath)
	}

	if err := writeJSON(countsPath, counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func loadLinkTargets(linkTargetsPath, cachePath string, tracked map[PageName]string) (map[int64]PageName, error) {
	if fileExists(cachePath) {
		targets := map[int64]PageName{}
		if err := readJSON(cachePath, &targets); err != nil {
			return nil, err
		}
		log.Infof("loaded %s link targets from %s",
			humanize.Comma(int64(len(targets))), cachePath)
		return targets, nil
	}

	log.Info("reading link targets")
	r, closeStream, err := openGzip(linkTargetsPath)
	if err != nil {
		return nil, err
	}
	defer closeStream()

	if err := SkipUntilPrefix(r, []byte(linkTargetPreamble)); err != nil {
		return nil, errors.Wrapf(err, "in %s", linkTargetsPath)
	}
	targets := map[int64]PageName{}
	if err := ParseLinkTargets(r, tracked, targets); err != nil {
		return nil, errors.Wrapf(err, "in %s", linkTargetsPath)
	}

	if err := writeJSON(cachePath, targets); err != nil {
		return nil, err
	}
	return targets, nil
}

func openGzip(path string) (*bufio.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %s", path)
	}
	gz, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrapf(err, "opening gzip stream %s", path)
	}
	closeStream := func() {
		gz.Close()
		f.Close()
	}
	return bufio.NewReader(gz), closeStream, nil
}
