// Copyright 2018 Informo core team <core@informo.network>
//
// Licensed under the GNU Affero General Public License, Version 3.0
// (the "License"); you may not use this file except in compliance with the
// License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"io/ioutil"
	"net/url"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// FeedType represents the type of the feed: either RSS or Atom.
type FeedType int

// The various kind of feed types
const (
	FeedTypeRSS FeedType = iota
	FeedTypeAtom
)

// FanOut tells how the cards of a load are appended to the grid.
type FanOut int

const (
	// FanOutDetached appends every card as soon as its build completes, so the
	// grid order depends on retrieval latency.
	FanOutDetached FanOut = iota
	// FanOutOrdered appends cards in the index order, each one as soon as it
	// and every card before it are resolved.
	FanOutOrdered
)

func (f FanOut) String() string {
	if f == FanOutOrdered {
		return "ordered"
	}
	return "detached"
}

// Default values for optional settings.
const (
	DefaultManifest         = "data/news_index.json"
	DefaultPage             = "index.html"
	DefaultContainer        = ".news-grid"
	DefaultPlaceholderImage = "img/placeholder.jpg"
	DefaultReadMore         = "Leer más"
	DefaultErrorTitle       = "Noticia no disponible"
	DefaultErrorMessage     = "No se ha podido cargar este artículo."
	DefaultTitleSelector    = "h1"
	DefaultSummarySelector  = "p"
	DefaultDateSelector     = "em"
	DefaultTitle            = "Sin título"
	DefaultDatePrefix       = "Artículo generado automáticamente el "
	DefaultUserAgent        = "contexto-abierto-grid/1.0"
	DefaultFeedPort         = 8080
	DefaultFeedItems        = 20
)

// DefaultDateLayouts match the dates written by the article generators.
var DefaultDateLayouts = []string{
	"{DAY_NUM}/{MONTH_NUM}/{YEAR_LONG}",
	"{DAY_NUM}-{MONTH_NUM}-{YEAR_LONG}",
	"{YEAR_LONG}-{MONTH_NUM}-{DAY_NUM}",
}

// Config represents the overall architecture of the configuration file.
type Config struct {
	Site        SiteConfig     `yaml:"site"`
	Grid        GridConfig     `yaml:"grid"`
	Selectors   CSSSelectors   `yaml:"selectors"`
	Date        DateConfig     `yaml:"date"`
	Fetch       FetchConfig    `yaml:"fetch"`
	Database    DatabaseConfig `yaml:"database"`
	FeedsConfig *FeedsConfig   `yaml:"feeds,omitempty"`
}

// SiteConfig describes where the site's documents live. Either BaseURL or
// Root must be set; references from the news index are resolved against
// BaseURL when it is set, against the Root directory otherwise.
type SiteConfig struct {
	BaseURL  string `yaml:"base_url,omitempty"`
	Root     string `yaml:"root,omitempty"`
	Manifest string `yaml:"manifest,omitempty"`
	// Host page containing the grid container, read from the local disk.
	Page string `yaml:"page,omitempty"`
	// File the rendered page is written to by the grid builder.
	Output string `yaml:"output,omitempty"`

	// Whether Page and Output follow Root.
	defaultPage   bool
	defaultOutput bool
}

// derivePaths computes the page and output paths left out of the
// configuration file from the current root.
func (sc *SiteConfig) derivePaths() {
	if sc.defaultPage {
		sc.Page = filepath.Join(sc.Root, DefaultPage)
	}
	if sc.defaultOutput {
		sc.Output = sc.Page
	}
}

// GridConfig represents the configuration of the grid container and of the
// cards appended to it.
type GridConfig struct {
	Container         string `yaml:"container,omitempty"`
	PlaceholderImage  string `yaml:"placeholder_image,omitempty"`
	ReadMore          string `yaml:"read_more,omitempty"`
	FanOut            FanOut `yaml:"fan_out,omitempty"`
	MaxConcurrency    int    `yaml:"max_concurrency,omitempty"`
	QualifyTags       bool   `yaml:"qualify_tags,omitempty"`
	ErrorPlaceholders bool   `yaml:"error_placeholders,omitempty"`
	ErrorTitle        string `yaml:"error_title,omitempty"`
	ErrorMessage      string `yaml:"error_message,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler for FanOut.
func (f *FanOut) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var mode string
	if err := unmarshal(&mode); err != nil {
		return err
	}

	switch mode {
	case "", "detached":
		*f = FanOutDetached
	case "ordered":
		*f = FanOutOrdered
	default:
		return fmt.Errorf("Invalid fan out mode: %s", mode)
	}

	return nil
}

// CSSSelectors represents the CSS selectors used to extract the fields of a
// card from an article document. Only the first match of each is used.
type CSSSelectors struct {
	Title   string `yaml:"title,omitempty"`
	Summary string `yaml:"summary,omitempty"`
	Date    string `yaml:"date,omitempty"`
}

// DateConfig represents how the date label is cleaned up and parsed.
type DateConfig struct {
	// Literal stripped from the beginning of the date label.
	Prefix string
	// Go layouts the date label is parsed with, in order, for archiving.
	Layouts []string
}

// UnmarshalYAML implements yaml.Unmarshaler.
// Layouts are written with {PATTERN} placeholders and converted into Go layouts
// here, so the rest of the code only deals with Go layouts.
func (dc *DateConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var cfg struct {
		Prefix  *string  `yaml:"prefix,omitempty"`
		Layouts []string `yaml:"layouts,omitempty"`
	}

	if err := unmarshal(&cfg); err != nil {
		return err
	}

	if cfg.Prefix != nil {
		dc.Prefix = *cfg.Prefix
	} else {
		dc.Prefix = DefaultDatePrefix
	}

	dc.Layouts = layouts(cfg.Layouts)

	return nil
}

// FetchConfig represents the configuration of the HTTP client retrieving the
// news index and the articles.
type FetchConfig struct {
	UserAgent string `yaml:"user_agent,omitempty"`
	// Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// DatabaseConfig represents the configuration of the card archive. An empty
// driver disables the archive.
type DatabaseConfig struct {
	DriverName     string `yaml:"driver,omitempty"`
	ConnectionData string `yaml:"connection_data,omitempty"`
}

// Enabled tells whether a database has been configured.
func (dc DatabaseConfig) Enabled() bool {
	return len(dc.DriverName) > 0
}

// FeedsConfig represents the configuration of the grid server.
type FeedsConfig struct {
	Type      FeedType
	Interface string
	Port      int
	NbItems   int
	// Public URL of the site, used as the feeds' link.
	Link string
}

// UnmarshalYAML implements yaml.Unmarshaler.
// The feed type is written as a string in the configuration file.
func (fc *FeedsConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var cfg struct {
		Type      string `yaml:"type"`
		Interface string `yaml:"interface"`
		Port      int    `yaml:"port"`
		NbItems   int    `yaml:"nb_items"`
		Link      string `yaml:"link"`
	}

	if err := unmarshal(&cfg); err != nil {
		return err
	}

	switch cfg.Type {
	case "", "rss":
		fc.Type = FeedTypeRSS
	case "atom":
		fc.Type = FeedTypeAtom
	default:
		return fmt.Errorf("Invalid feed type: %s", cfg.Type)
	}

	fc.Interface = cfg.Interface
	fc.Port = cfg.Port
	fc.NbItems = cfg.NbItems
	fc.Link = cfg.Link

	return nil
}

// Load parses the configuration file located at the given path, fills in the
// defaults and checks its content.
// Returns an error if the file couldn't be read or parsed, or if a value is
// invalid.
func Load(filePath string) (cfg *Config, err error) {
	// Reads the configuration file.
	content, err := ioutil.ReadFile(filePath)
	if err != nil {
		return
	}

	return Parse(content)
}

// Parse parses the content of a configuration file, fills in the defaults and
// checks it.
func Parse(content []byte) (cfg *Config, err error) {
	// Parse the configuration file into the Config instance.
	cfg = new(Config)
	if err = yaml.Unmarshal(content, cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if err = cfg.Check(); err != nil {
		return nil, err
	}

	return
}

// setDefaults fills every optional setting left empty.
func (c *Config) setDefaults() {
	setDefault(&c.Site.Manifest, DefaultManifest)
	c.Site.defaultPage = len(c.Site.Page) == 0
	c.Site.defaultOutput = len(c.Site.Output) == 0
	c.Site.derivePaths()

	setDefault(&c.Grid.Container, DefaultContainer)
	setDefault(&c.Grid.PlaceholderImage, DefaultPlaceholderImage)
	setDefault(&c.Grid.ReadMore, DefaultReadMore)
	setDefault(&c.Grid.ErrorTitle, DefaultErrorTitle)
	setDefault(&c.Grid.ErrorMessage, DefaultErrorMessage)

	setDefault(&c.Selectors.Title, DefaultTitleSelector)
	setDefault(&c.Selectors.Summary, DefaultSummarySelector)
	setDefault(&c.Selectors.Date, DefaultDateSelector)

	// The "date" section is optional, in which case UnmarshalYAML is never
	// called.
	if c.Date.Layouts == nil {
		c.Date = DateConfig{
			Prefix:  DefaultDatePrefix,
			Layouts: layouts(nil),
		}
	}

	setDefault(&c.Fetch.UserAgent, DefaultUserAgent)

	if c.FeedsConfig != nil {
		if c.FeedsConfig.Port == 0 {
			c.FeedsConfig.Port = DefaultFeedPort
		}
		if c.FeedsConfig.NbItems == 0 {
			c.FeedsConfig.NbItems = DefaultFeedItems
		}
	}
}

// Check makes sure the configuration can be used.
func (c *Config) Check() error {
	// Check the site's location.
	if len(c.Site.BaseURL) == 0 && len(c.Site.Root) == 0 {
		return fmt.Errorf("Either site.base_url or site.root must be set")
	}
	if len(c.Site.BaseURL) > 0 {
		u, err := url.Parse(c.Site.BaseURL)
		if err != nil {
			return fmt.Errorf("Base URL isn't a valid URL: %s", err.Error())
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("Unsupported protocol scheme for base URL: %s", u.Scheme)
		}
	}

	if c.Grid.MaxConcurrency < 0 {
		return fmt.Errorf("Invalid max concurrency: %d", c.Grid.MaxConcurrency)
	}

	// Check if the database driver is supported.
	if c.Database.Enabled() && c.Database.DriverName != "postgres" && c.Database.DriverName != "sqlite3" {
		return fmt.Errorf("Unsupported database driver %s", c.Database.DriverName)
	}

	return nil
}

func setDefault(value *string, def string) {
	if len(*value) == 0 {
		*value = def
	}
}
