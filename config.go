package wikiextract

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults for the markers that classify pages. The infobox markers
// drop the leading letter so capitalization variance in the source
// markup still matches.
const (
	DefaultRedirectMarker      = "#REDIRECT"
	DefaultTopicInfoboxMarker  = "nfobox music genre"
	DefaultEntityInfoboxMarker = "nfobox musical artist"
)

// Config names the inputs and outputs of a run.
type Config struct {
	// DumpPath is the multistream xml dump; IndexPath is its
	// companion block-offset index.
	DumpPath  string `yaml:"dump_path"`
	IndexPath string `yaml:"index_path"`

	// The two SQL table exports, gzip-compressed.
	LinkTargetsPath string `yaml:"linktargets_path"`
	PageLinksPath   string `yaml:"pagelinks_path"`

	// OutputPath is the root under which per-dump output directories
	// are created.
	OutputPath string `yaml:"output_path"`

	RedirectMarker      string `yaml:"redirect_marker"`
	TopicInfoboxMarker  string `yaml:"topic_infobox_marker"`
	EntityInfoboxMarker string `yaml:"entity_infobox_marker"`
}

// LoadConfig reads a yaml config file. A .env file, if present, and
// the process environment may override the path settings.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "loading .env")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}

	overrideFromEnv(&cfg.DumpPath, "WIKIEXTRACT_DUMP_PATH")
	overrideFromEnv(&cfg.IndexPath, "WIKIEXTRACT_INDEX_PATH")
	overrideFromEnv(&cfg.LinkTargetsPath, "WIKIEXTRACT_LINKTARGETS_PATH")
	overrideFromEnv(&cfg.PageLinksPath, "WIKIEXTRACT_PAGELINKS_PATH")
	overrideFromEnv(&cfg.OutputPath, "WIKIEXTRACT_OUTPUT_PATH")

	cfg.applyDefaults()
	return cfg, nil
}

func overrideFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.OutputPath == "" {
		c.OutputPath = "output"
	}
	if c.RedirectMarker == "" {
		c.RedirectMarker = DefaultRedirectMarker
	}
	if c.TopicInfoboxMarker == "" {
		c.TopicInfoboxMarker = DefaultTopicInfoboxMarker
	}
	if c.EntityInfoboxMarker == "" {
		c.EntityInfoboxMarker = DefaultEntityInfoboxMarker
	}
}

// DumpDate extracts the dump date shared by the dump and index file
// names and ensures the two agree.
func (c *Config) DumpDate() (time.Time, error) {
	dumpDate, err := ParseDumpDate(filepath.Base(c.DumpPath))
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "dump %s", c.DumpPath)
	}
	indexDate, err := ParseDumpDate(filepath.Base(c.IndexPath))
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "index %s", c.IndexPath)
	}
	if !dumpDate.Equal(indexDate) {
		return time.Time{}, errors.Errorf(
			"dump date (%s) does not match index date (%s)",
			dumpDate.Format(time.DateOnly), indexDate.Format(time.DateOnly))
	}
	return dumpDate, nil
}
