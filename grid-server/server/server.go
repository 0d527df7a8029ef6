package server

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/ContextoAbierto/contexto-abierto/common"
	"github.com/ContextoAbierto/contexto-abierto/common/config"
	"github.com/ContextoAbierto/contexto-abierto/common/database"
	"github.com/ContextoAbierto/contexto-abierto/common/loader"
	"github.com/ContextoAbierto/contexto-abierto/common/site"

	"github.com/gorilla/feeds"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// This string will be sent as a response to the request if any error happens
// in order to avoid sending sensitive data contained in the error's message.
const intSrvErr = "Internal server error"

// Server serves the front page of the site, with its news grid loaded for
// every request, the feeds of the archived cards, and the site's static files.
type Server struct {
	site *site.Site
	mux  *mux.Router
	cfg  *config.Config
	// Serializes the loads, since they all share the same grid.
	loadMu sync.Mutex
}

// NewServer instantiates a Server.
func NewServer(s *site.Site, cfg *config.Config) *Server {
	return &Server{
		site: s,
		mux:  mux.NewRouter(),
		cfg:  cfg,
	}
}

// SetupAndServe registers the routes and listens on the configured interface
// and port.
func (s *Server) SetupAndServe() error {
	s.Setup()
	listenAddr := fmt.Sprintf("%s:%d", s.cfg.FeedsConfig.Interface, s.cfg.FeedsConfig.Port)
	logrus.WithField("address", listenAddr).Info("Serving")
	return http.ListenAndServe(listenAddr, s.mux)
}

// Setup registers the routes.
func (s *Server) Setup() {
	for _, path := range []string{"/", "/index.html"} {
		s.mux.HandleFunc(path, s.servePage).Methods(http.MethodGet, http.MethodHead)
		// Keeps other methods away from the static host page.
		s.mux.HandleFunc(path, methodNotAllowed)
	}

	// Feeds are generated from the archive, so there's no feed without a
	// database.
	if s.site.DB != nil {
		s.mux.HandleFunc("/feeds/{section}", s.serveFeed).Methods(http.MethodGet)
	}

	// Articles, images and stylesheets, when the site is stored locally.
	if len(s.cfg.Site.Root) > 0 {
		s.mux.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.Site.Root)))
	}
}

func methodNotAllowed(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.mux.ServeHTTP(w, req)
}

// servePage loads the news grid and serves the resulting page. Every request
// is a new page load: the grid is cleared and populated again.
func (s *Server) servePage(w http.ResponseWriter, req *http.Request) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	run, err := s.site.Loader.Load(req.Context())
	if err != nil {
		logrus.WithError(err).Error("Couldn't load the news index")
		http.Error(w, intSrvErr, http.StatusInternalServerError)
		return
	}

	log := logrus.WithField("run_id", run.ID)
	loader.LogFailures(log, run.Wait())

	var buf bytes.Buffer
	if err = s.site.Grid.Render(&buf); err != nil {
		log.WithError(err).Error("Couldn't render page")
		http.Error(w, intSrvErr, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// serveFeed serves the latest archived cards of a section as a feed.
func (s *Server) serveFeed(w http.ResponseWriter, req *http.Request) {
	// Parse the variables (i.e. get the section's name from the request's URL)
	section := common.Section(mux.Vars(req)["section"])
	errLog := logrus.WithField("section", section)

	if !knownSection(section) {
		http.Error(w, fmt.Sprintf("Unknown section %s", section), http.StatusNotFound)
		return
	}

	cards, err := s.site.DB.RetrieveLatestCardsForSection(section, s.cfg.FeedsConfig.NbItems)
	if err != nil {
		http.Error(w, intSrvErr, http.StatusInternalServerError)
		errLog.Error(err)
		return
	}

	feed, err := s.getFeed(cards, section)
	if err != nil {
		http.Error(w, intSrvErr, http.StatusInternalServerError)
		errLog.Error(err)
		return
	}

	// Convert this feed to string accordingly with the FeedType configuration
	// setting.
	feedStr, err := s.feedToString(feed)
	if err != nil {
		http.Error(w, intSrvErr, http.StatusInternalServerError)
		errLog.Error(err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"section":        section,
		"content_length": len(feedStr),
		"feed_type":      s.cfg.FeedsConfig.Type,
		"nb_items":       len(cards),
	}).Info("Served feed")

	w.Header().Add("Content-Type", "text/xml;charset=utf-8")
	w.Write([]byte(feedStr))
}

func knownSection(section common.Section) bool {
	for _, s := range common.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// getFeed builds the feed of a section from its archived cards. Links are
// made absolute using the configured public URL of the site.
func (s *Server) getFeed(cards []database.ArchivedCard, section common.Section) (*feeds.Feed, error) {
	link, err := url.Parse(s.feedLink())
	if err != nil {
		return nil, err
	}

	feed := &feeds.Feed{
		Title: fmt.Sprintf("Contexto Abierto - %s", section),
		Link:  &feeds.Link{Href: link.String()},
	}

	for _, c := range cards {
		ref, err := url.Parse(c.Reference)
		if err != nil {
			return nil, err
		}

		item := &feeds.Item{
			Title:       c.Fields.Title,
			Link:        &feeds.Link{Href: link.ResolveReference(ref).String()},
			Description: c.Fields.Summary,
			Id:          link.ResolveReference(ref).String(),
			Created:     c.ArchivedAt,
		}
		// Prefer the article's own date when it could be parsed.
		if c.Date != nil {
			item.Created = *c.Date
		}

		feed.Items = append(feed.Items, item)
	}

	if len(feed.Items) > 0 {
		feed.Created = cards[0].ArchivedAt
	}

	return feed, nil
}

func (s *Server) feedLink() string {
	if len(s.cfg.FeedsConfig.Link) > 0 {
		return s.cfg.FeedsConfig.Link
	}
	if len(s.cfg.Site.BaseURL) > 0 {
		return s.cfg.Site.BaseURL
	}
	return "/"
}

func (s *Server) feedToString(feed *feeds.Feed) (string, error) {
	switch s.cfg.FeedsConfig.Type {
	case config.FeedTypeRSS:
		return feed.ToRss()
	case config.FeedTypeAtom:
		return feed.ToAtom()
	}
	return "", fmt.Errorf("Unknown feed type %d", s.cfg.FeedsConfig.Type)
}
