package wikiextract

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

// WikitextHeader is the JSON line written above the raw markup in each
// tracked page file.
type WikitextHeader struct {
	Timestamp time.Time `json:"timestamp"`
	ID        int64     `json:"id"`
}

// ExtractedData is everything the extractor recovers from the dump.
type ExtractedData struct {
	Meta DumpMeta

	// Topic and entity candidates, mapped to their output files.
	Topics   map[PageName]string
	Entities map[PageName]string

	// Every redirect in the dump, tracked or not. Resolving a tracked
	// page may require following a chain through pages we otherwise
	// ignore.
	Redirects map[PageName]PageName

	// Numeric page id to page name for every tracked page.
	IDToPage map[int64]PageName
}

// partialData is one worker's view of the dump. Workers never share
// state while scanning; partials are merged by a sequential fold after
// all of them finish.
type partialData struct {
	topics    map[PageName]string
	entities  map[PageName]string
	redirects map[PageName]PageName
	idToPage  map[int64]PageName
}

func newPartialData() *partialData {
	return &partialData{
		topics:    map[PageName]string{},
		entities:  map[PageName]string{},
		redirects: map[PageName]PageName{},
		idToPage:  map[int64]PageName{},
	}
}

// merge folds other into d. Duplicate keys should not occur in a
// well-formed dump; later values win silently.
func (d *partialData) merge(other *partialData) {
	for k, v := range other.topics {
		d.topics[k] = v
	}
	for k, v := range other.entities {
		d.entities[k] = v
	}
	for k, v := range other.redirects {
		d.redirects[k] = v
	}
	for k, v := range other.idToPage {
		d.idToPage[k] = v
	}
}

// blockWindow bounds one compressed block: [start, end) of the dump
// file. The decompressor is handed exactly this window, so it stops at
// the block boundary rather than running on into the next stream.
type blockWindow struct {
	start, end int64
}

type extractor struct {
	cfg          *Config
	domain       string
	topicsPath   string
	entitiesPath string

	// Display-only progress counter; never used for coordination.
	entityCount atomic.Int64
}

// Extract scans the dump for tracked pages, redirects, and page ids,
// writing one file per tracked page plus the map artifacts under
// outputPath. When a previous run's artifacts are present they are
// reloaded instead; reprocessing a full dump is too expensive to
// repeat casually.
func Extract(cfg *Config, dumpDate time.Time, outputPath string) (*ExtractedData, error) {
	topicsPath := filepath.Join(outputPath, topicsDir)
	entitiesPath := filepath.Join(outputPath, entitiesDir)
	metaPath := filepath.Join(outputPath, metaFile)
	redirectsPath := filepath.Join(outputPath, redirectsFile)
	idToPagePath := filepath.Join(outputPath, idToPageFile)

	if dirExists(topicsPath) && dirExists(entitiesPath) &&
		fileExists(metaPath) && fileExists(redirectsPath) && fileExists(idToPagePath) {
		return loadExtracted(outputPath)
	}

	log.Info("extraction results missing; beginning extraction from dump")
	if err := os.MkdirAll(outputPath, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %s", outputPath)
	}

	offsets, err := LoadOffsets(cfg.IndexPath, filepath.Join(outputPath, offsetsFile))
	if err != nil {
		return nil, err
	}
	if len(offsets) == 0 {
		return nil, errors.Errorf("index %s contains no block offsets", cfg.IndexPath)
	}

	// One read-only map of the whole dump, shared by every worker.
	// Concurrent reads need no synchronization, and the OS is free to
	// evict pages under memory pressure.
	dump, err := mmap.Open(cfg.DumpPath)
	if err != nil {
		return nil, errors.Wrapf(err, "memory-mapping dump %s", cfg.DumpPath)
	}
	defer dump.Close()

	// The bytes before the first block hold the dump's header metadata.
	domain, dbName, err := readDumpHeader(io.NewSectionReader(dump, 0, offsets[0]))
	if err != nil {
		return nil, errors.Wrapf(err, "reading header of %s", cfg.DumpPath)
	}
	log.Infof("dump is %s (%s)", domain, dbName)

	for _, dir := range []string{topicsPath, entitiesPath} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "creating output directory %s", dir)
		}
	}

	ex := &extractor{
		cfg:          cfg,
		domain:       domain,
		topicsPath:   topicsPath,
		entitiesPath: entitiesPath,
	}

	merged, err := ex.scanAllBlocks(dump, offsets)
	if err != nil {
		return nil, err
	}

	if err := writeJSON(redirectsPath, merged.redirects); err != nil {
		return nil, err
	}
	if err := writeJSON(idToPagePath, merged.idToPage); err != nil {
		return nil, err
	}
	meta := DumpMeta{Domain: domain, DBName: dbName, DumpDate: dumpDate}
	if err := meta.Save(metaPath); err != nil {
		return nil, err
	}

	log.Infof("extracted %s topics, %s entities, %s redirects",
		humanize.Comma(int64(len(merged.topics))),
		humanize.Comma(int64(len(merged.entities))),
		humanize.Comma(int64(len(merged.redirects))))

	return &ExtractedData{
		Meta:      meta,
		Topics:    merged.topics,
		Entities:  merged.entities,
		Redirects: merged.redirects,
		IDToPage:  merged.idToPage,
	}, nil
}

// scanAllBlocks fans the block windows out to one worker per core.
// Each worker accumulates into its own partial state; the reduction is
// a sequential fold once every worker has finished.
func (ex *extractor) scanAllBlocks(dump *mmap.ReaderAt, offsets []int64) (*partialData, error) {
	windows := make(chan blockWindow, len(offsets))
	for i, start := range offsets {
		end := int64(dump.Len())
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		windows <- blockWindow{start: start, end: end}
	}
	close(windows)

	type result struct {
		data *partialData
		err  error
	}
	numWorkers := runtime.NumCPU()
	results := make(chan result, numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			partial := newPartialData()
			for w := range windows {
				section := io.NewSectionReader(dump, w.start, w.end-w.start)
				if err := ex.scanBlock(partial, section); err != nil {
					results <- result{partial, errors.Wrapf(err, "block at offset %d", w.start)}
					return
				}
			}
			results <- result{partial, nil}
		}()
	}

	merged := newPartialData()
	var firstErr error
	for i := 0; i < numWorkers; i++ {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		merged.merge(r.data)
	}
	return merged, firstErr
}

// scanBlock decompresses one block and walks its xml events, tracking
// the title, raw text, timestamp and first id of the page in flight.
func (ex *extractor) scanBlock(data *partialData, section io.Reader) error {
	bz, err := bzip2.NewReader(bufio.NewReader(section), &bzip2.ReaderConfig{})
	if err != nil {
		return errors.Wrap(err, "opening block stream")
	}
	defer bz.Close()

	d := xml.NewDecoder(bz)
	var (
		title, text, timestamp, pageID string
		recording                      *string
	)
	for {
		tok, err := d.Token()
		if err != nil {
			// Blocks are bare sequences of <page> elements; running out
			// of input is the normal end of a block, and the dump's last
			// block closes the document root opened in the header region.
			// Anything else, a decompressor error in particular, means
			// the block is corrupt and its data cannot be trusted.
			if err == io.EOF || isStrayEndElement(err) {
				return nil
			}
			return errors.Wrap(err, "scanning block")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "title":
				title = ""
				recording = &title
			case "text":
				text = ""
				recording = &text
			case "timestamp":
				timestamp = ""
				recording = &timestamp
			case "page":
				pageID = ""
			case "id":
				// Only the first id after a page start is the page id;
				// later ones belong to revision and contributor records.
				if pageID == "" {
					recording = &pageID
				}
			}
		case xml.CharData:
			if recording != nil {
				*recording += string(t)
			}
		case xml.EndElement:
			recording = nil
			if t.Name.Local == "page" {
				if err := ex.finishPage(data, title, text, timestamp, pageID); err != nil {
					return err
				}
			}
		}
	}
}

// isStrayEndElement reports whether err is the decoder complaining about
// an end element with no matching start, which is how the closing
// </mediawiki> tag at the tail of the dump's final block presents.
func isStrayEndElement(err error) bool {
	var syn *xml.SyntaxError
	return errors.As(err, &syn) && strings.Contains(syn.Msg, "unexpected end element")
}

// finishPage classifies a completed page record and files it.
func (ex *extractor) finishPage(data *partialData, title, text, timestamp, pageID string) error {
	page := PageName{Name: title}

	if strings.HasPrefix(text, ex.cfg.RedirectMarker) {
		target, err := ParseRedirectTarget(ex.domain, text)
		if err != nil {
			log.Warnf("failed to parse redirect for %s: %v", page, err)
			return nil
		}
		data.redirects[page] = target
		return nil
	}

	isTopic := strings.Contains(text, ex.cfg.TopicInfoboxMarker)
	isEntity := strings.Contains(text, ex.cfg.EntityInfoboxMarker)
	if !isTopic && !isEntity {
		return nil
	}

	// Titles with a colon are namespace pages, not articles.
	if strings.Contains(page.Name, ":") {
		return nil
	}

	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return errors.Wrapf(err, "malformed timestamp %q for page %s", timestamp, page)
	}
	id, err := strconv.ParseInt(pageID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "malformed page id %q for page %s", pageID, page)
	}

	dir, collection := ex.entitiesPath, data.entities
	if isTopic {
		dir, collection = ex.topicsPath, data.topics
	}
	outPath := filepath.Join(dir, page.Sanitize()+".wikitext")
	if err := writePageFile(outPath, WikitextHeader{Timestamp: ts, ID: id}, text); err != nil {
		return err
	}

	data.idToPage[id] = page
	collection[page] = outPath

	if isTopic {
		log.Debugf("topic %s", page)
	} else if n := ex.entityCount.Add(1); n%5000 == 0 {
		log.Infof("processed %s entities", humanize.Comma(n))
	}
	return nil
}

// writePageFile persists one tracked page: a JSON header line followed
// by the raw markup. Paths derive from unique page identities, so no
// two workers ever write the same file.
func writePageFile(path string, header WikitextHeader, text string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating page file %s", path)
	}
	w := bufio.NewWriter(f)
	raw, err := json.Marshal(header)
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "serializing header for %s", path)
	}
	w.Write(raw)
	w.WriteByte('\n')
	w.WriteString(text)
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing page file %s", path)
	}
	return errors.Wrapf(f.Close(), "writing page file %s", path)
}

// loadExtracted rebuilds the extraction result from a previous run's
// artifacts.
func loadExtracted(outputPath string) (*ExtractedData, error) {
	meta, err := LoadDumpMeta(filepath.Join(outputPath, metaFile))
	if err != nil {
		return nil, err
	}

	topics, err := loadPageDir(filepath.Join(outputPath, topicsDir))
	if err != nil {
		return nil, err
	}
	log.Infof("loaded all %s topic pages", humanize.Comma(int64(len(topics))))

	entities, err := loadPageDir(filepath.Join(outputPath, entitiesDir))
	if err != nil {
		return nil, err
	}
	log.Infof("loaded all %s entity pages", humanize.Comma(int64(len(entities))))

	redirects := map[PageName]PageName{}
	if err := readJSON(filepath.Join(outputPath, redirectsFile), &redirects); err != nil {
		return nil, err
	}
	log.Infof("loaded all %s redirects", humanize.Comma(int64(len(redirects))))

	idToPage := map[int64]PageName{}
	if err := readJSON(filepath.Join(outputPath, idToPageFile), &idToPage); err != nil {
		return nil, err
	}

	return &ExtractedData{
		Meta:      meta,
		Topics:    topics,
		Entities:  entities,
		Redirects: redirects,
		IDToPage:  idToPage,
	}, nil
}

// loadPageDir recovers a tracked-page map from the file names of a
// per-page output directory.
func loadPageDir(dir string) (map[PageName]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading page directory %s", dir)
	}
	pages := make(map[PageName]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		pages[UnsanitizePageName(stem)] = filepath.Join(dir, name)
	}
	return pages, nil
}
