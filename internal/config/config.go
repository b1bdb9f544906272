package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"icetime/internal/model"
)

// Source kinds. Each kind selects an adapter in internal/source.
const (
	KindAPI     = "api"     // JSON calendar API, plain HTTP
	KindBrowser = "browser" // calendar that only renders after script execution
	KindICS     = "ics"     // municipal iCal feed
	KindPDF     = "pdf"     // pre-extracted PDF grid text
	KindStatic  = "static"  // hand-encoded weekly rules in this file
)

// Dedup key names accepted in SourceConfig.DedupKey.
const (
	DedupFacilityEvent     = "facility-event"
	DedupFacilityDateStart = "facility-date-start"
	DedupDateStartActivity = "date-start-activity"
)

// SourceConfig describes one municipal schedule source.
type SourceConfig struct {
	// ID is an internal identifier used for logging and counters.
	ID string `yaml:"id"`
	// City scopes facility resolution for this source.
	City string `yaml:"city"`
	// Kind selects the adapter; see the Kind* constants.
	Kind string `yaml:"kind"`

	// URL is the fetch endpoint for api/browser/ics sources.
	URL string `yaml:"url,omitempty"`

	// WaitSelector is the CSS selector a browser source waits on before
	// extracting data. Defaults to "[data-loaded]".
	WaitSelector string `yaml:"wait_selector,omitempty"`

	// TextPath points at the extracted text of a PDF grid (extraction
	// itself happens outside this process).
	TextPath string `yaml:"text_path,omitempty"`

	// DefaultFacility is applied when free text resolves to no facility.
	// Empty means unresolved records are dropped (and counted).
	DefaultFacility string `yaml:"default_facility,omitempty"`

	// ValidFrom/ValidTo bound the source's effective window (inclusive,
	// YYYY-MM-DD). A missing end falls back to the rolling horizon, or to
	// the current skating season (Jan 1 – Mar 31) when Seasonal is set.
	ValidFrom string `yaml:"valid_from,omitempty"`
	ValidTo   string `yaml:"valid_to,omitempty"`
	Seasonal  bool   `yaml:"seasonal,omitempty"`

	// DedupKey names the aggregation key for this source's batch; see the
	// Dedup* constants. Defaults to facility-date-start.
	DedupKey string `yaml:"dedup_key,omitempty"`

	// Swim switches classification to the swimming taxonomy (and enables
	// the sauna/whirlpool pre-filter).
	Swim bool `yaml:"swim,omitempty"`

	ScheduleURL string `yaml:"schedule_url,omitempty"`

	// Static schedule data, used by static sources and as special-event
	// supplements for any kind.
	Rules      []model.ScheduleRule          `yaml:"rules,omitempty"`
	Exceptions map[string]model.ExceptionSet `yaml:"exceptions,omitempty"`
	Specials   []model.SpecialEvent          `yaml:"specials,omitempty"`
}

// Config is the top-level application configuration plus all reference
// data: the facility directory and the per-source schedule tables. It is
// loaded once at startup and read-only afterwards.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen"`

	// RefreshCron is a cron-style schedule string (e.g. "0 */6 * * *")
	// for periodic refresh runs.
	RefreshCron string `yaml:"refresh"`

	// HorizonDays is the rolling window length for sources without an
	// explicit validity end.
	HorizonDays int `yaml:"horizon_days"`

	// CacheDir is the base directory for the HTTP fetch cache.
	CacheDir string `yaml:"cache_dir"`

	// OutputJSON, StorePath and OutputICS are publish targets; any may be
	// empty to disable that output.
	OutputJSON string `yaml:"output_json,omitempty"`
	StorePath  string `yaml:"store_path,omitempty"`
	OutputICS  string `yaml:"output_ics,omitempty"`

	Facilities []model.Facility `yaml:"facilities"`
	Sources    []SourceConfig   `yaml:"sources"`
}

// DefaultConfig returns an in-memory default configuration. The default
// carries no facilities or sources; a fresh install produces an empty
// session set until reference data is filled in.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		RefreshCron: "0 */6 * * *",
		HorizonDays: 90,
		CacheDir:    "./var/fetch-cache",
		OutputJSON:  "./var/sessions.json",
		Facilities:  []model.Facility{},
		Sources:     []SourceConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "0 */6 * * *"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 90
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/fetch-cache"
	}
	if c.Facilities == nil {
		c.Facilities = []model.Facility{}
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.DedupKey == "" {
			src.DedupKey = DedupFacilityDateStart
		}
		if src.WaitSelector == "" {
			src.WaitSelector = "[data-loaded]"
		}
	}
}

// Validate rejects configurations the pipeline cannot run with. Reference
// data problems are the one fatal error class of the whole system.
func (c *Config) Validate() error {
	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("config: source %d has no id", i)
		}
		switch src.Kind {
		case KindAPI, KindBrowser, KindICS:
			if src.URL == "" {
				return fmt.Errorf("config: source %q (%s) has no url", src.ID, src.Kind)
			}
		case KindPDF:
			if src.TextPath == "" {
				return fmt.Errorf("config: source %q (pdf) has no text_path", src.ID)
			}
		case KindStatic:
			if len(src.Rules) == 0 && len(src.Specials) == 0 {
				return fmt.Errorf("config: source %q (static) has no rules or specials", src.ID)
			}
		default:
			return fmt.Errorf("config: source %q has unknown kind %q", src.ID, src.Kind)
		}
		switch src.DedupKey {
		case DedupFacilityEvent, DedupFacilityDateStart, DedupDateStartActivity:
		default:
			return fmt.Errorf("config: source %q has unknown dedup_key %q", src.ID, src.DedupKey)
		}
	}
	return nil
}

// SeasonWindow is the fallback validity window for seasonal sources that
// declare no dates: January 1 through March 31 of the current year.
func SeasonWindow(now time.Time) (validFrom, validTo string) {
	y := now.Year()
	return fmt.Sprintf("%04d-01-01", y), fmt.Sprintf("%04d-03-31", y)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there (0600)
//     and returned.
//   - Otherwise the YAML is unmarshalled, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".icetime-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
