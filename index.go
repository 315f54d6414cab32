package wikiextract

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// LoadOffsets returns the strictly increasing byte offsets at which
// independently compressed blocks begin within the dump.
//
// The offsets are derived from the dump's companion index file, a
// bzip2-compressed stream of "offset:rest" lines, and cached in plain
// text (one integer per line) at cachePath. When the cache exists it
// is loaded instead of re-reading the index.
func LoadOffsets(indexPath, cachePath string) ([]int64, error) {
	if _, err := os.Stat(cachePath); err == nil {
		return loadCachedOffsets(cachePath)
	}

	f, err := os.Open(indexPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening index %s", indexPath)
	}
	defer f.Close()

	bz, err := bzip2.NewReader(bufio.NewReader(f), &bzip2.ReaderConfig{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening index stream %s", indexPath)
	}
	defer bz.Close()

	seen := map[int64]struct{}{}
	scanner := bufio.NewScanner(bz)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		field, _, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			return nil, errors.Errorf("bad index record %q in %s", scanner.Text(), indexPath)
		}
		offset, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad offset %q in %s", field, indexPath)
		}
		seen[offset] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading index %s", indexPath)
	}

	offsets := make([]int64, 0, len(seen))
	for offset := range seen {
		offsets = append(offsets, offset)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	if err := saveOffsets(cachePath, offsets); err != nil {
		return nil, err
	}
	log.Infof("extracted %s block offsets from index and cached to %s",
		humanize.Comma(int64(len(offsets))), cachePath)
	return offsets, nil
}

func loadCachedOffsets(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening offsets cache %s", path)
	}
	defer f.Close()

	var offsets []int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		offset, err := strconv.ParseInt(scanner.Text(), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad offset %q in cache %s", scanner.Text(), path)
		}
		offsets = append(offsets, offset)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading offsets cache %s", path)
	}
	log.Infof("loaded %s block offsets from %s",
		humanize.Comma(int64(len(offsets))), path)
	return offsets, nil
}

func saveOffsets(path string, offsets []int64) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating offsets cache %s", path)
	}
	w := bufio.NewWriter(f)
	for _, offset := range offsets {
		fmt.Fprintln(w, offset)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing offsets cache %s", path)
	}
	return errors.Wrapf(f.Close(), "writing offsets cache %s", path)
}
