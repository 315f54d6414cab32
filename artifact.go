package wikiextract

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Artifact files produced under the per-dump output directory. Each is
// written once and reloaded by later runs instead of being recomputed.
const (
	offsetsFile    = "offsets.txt"
	metaFile       = "meta.yaml"
	topicsDir      = "topics"
	entitiesDir    = "entities"
	redirectsFile  = "all_redirects.json"
	idToPageFile   = "id_to_page_names.json"
	linkTargetFile = "linktargets.json"
	linkCountFile  = "entity_inbound_link_counts.json"
)

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func dirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "serializing %s", path)
	}
	return errors.Wrapf(os.WriteFile(path, raw, 0644), "writing %s", path)
}

func readJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	return errors.Wrapf(json.Unmarshal(raw, v), "parsing %s", path)
}
