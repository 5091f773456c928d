// Package catalog answers the read side of the API: paged listings, quick
// search, statistics and the fixed category list.
package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/BayRex1/bayrex-apk/internal/models"
	"github.com/BayRex1/bayrex-apk/internal/store"
)

const (
	DefaultSearchLimit = 10

	ServiceName    = "BayRex APK Store"
	ServiceVersion = "1.0.0"
)

// Query is a listing request. Limit <= 0 returns every match.
type Query struct {
	Search   string
	Category string
	Featured bool
	Sort     store.SortOrder
	Limit    int
	Offset   int
}

// Page is one slice of a listing. Total counts every match before slicing.
type Page struct {
	Apps  []AppView `json:"apps"`
	Total int       `json:"total"`
}

// SearchHit is the compact record returned by quick search.
type SearchHit struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	IconFilename *string `json:"icon_filename"`
	Downloads    int64   `json:"downloads"`
	Category     string  `json:"category"`
}

type SearchResult struct {
	Results []SearchHit `json:"results"`
	Query   string      `json:"query"`
	Count   int         `json:"count"`
}

type TopApp struct {
	Name      string `json:"name"`
	Downloads int64  `json:"downloads"`
}

type Stats struct {
	TotalApps      int     `json:"total_apps"`
	TotalDownloads int64   `json:"total_downloads"`
	TotalSizeMB    string  `json:"total_size_mb"`
	FeaturedApps   int     `json:"featured_apps"`
	TopApp         *TopApp `json:"top_app"`
}

type Info struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Description    string `json:"description"`
	Admin          string `json:"admin"`
	TotalApps      int    `json:"total_apps"`
	TotalDownloads int64  `json:"total_downloads"`
}

// Service composes store listings into API responses.
type Service struct {
	store store.Store
	admin string
}

func NewService(s store.Store, adminUsername string) *Service {
	return &Service{store: s, admin: adminUsername}
}

// Query filters, sorts and slices the catalog.
func (s *Service) Query(ctx context.Context, q Query) (*Page, error) {
	apps, err := s.store.List(ctx, store.Filter{
		Search:       strings.TrimSpace(q.Search),
		Category:     strings.TrimSpace(q.Category),
		FeaturedOnly: q.Featured,
		Sort:         q.Sort,
	})
	if err != nil {
		return nil, err
	}

	total := len(apps)
	return &Page{Apps: Views(paginate(apps, q.Limit, q.Offset)), Total: total}, nil
}

func paginate(apps []models.App, limit, offset int) []models.App {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(apps) {
		return []models.App{}
	}
	apps = apps[offset:]
	if limit > 0 && limit < len(apps) {
		apps = apps[:limit]
	}
	return apps
}

// Search is the quick search behind the header search box. A blank query
// returns no results rather than the whole catalog.
func (s *Service) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	res := &SearchResult{Results: []SearchHit{}, Query: query}
	term := strings.TrimSpace(query)
	if term == "" {
		return res, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	apps, err := s.store.List(ctx, store.Filter{Search: term})
	if err != nil {
		return nil, err
	}
	for _, app := range paginate(apps, limit, 0) {
		res.Results = append(res.Results, SearchHit{
			ID:           app.ID,
			Name:         app.Name,
			Description:  app.Description,
			IconFilename: app.IconFilename,
			Downloads:    app.Downloads,
			Category:     app.Category,
		})
	}
	res.Count = len(res.Results)
	return res, nil
}

// Stats aggregates the whole catalog. TopApp is nil for an empty catalog;
// on a tie the most recently added app wins.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	apps, err := s.allByID(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{TotalApps: len(apps)}
	var size int64
	var top *models.App
	for i := range apps {
		app := &apps[i]
		st.TotalDownloads += app.Downloads
		size += app.FileSize
		if app.IsFeatured {
			st.FeaturedApps++
		}
		if top == nil || app.Downloads >= top.Downloads {
			top = app
		}
	}
	st.TotalSizeMB = FormatMB(size)
	if top != nil {
		st.TopApp = &TopApp{Name: top.Name, Downloads: top.Downloads}
	}
	return st, nil
}

// Info describes the running server for /api/info.
func (s *Service) Info(ctx context.Context) (*Info, error) {
	apps, err := s.store.List(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}
	info := &Info{
		Name:        ServiceName,
		Version:     ServiceVersion,
		Description: "Магазин Android приложений",
		Admin:       s.admin,
		TotalApps:   len(apps),
	}
	for _, app := range apps {
		info.TotalDownloads += app.Downloads
	}
	return info, nil
}

// Categories returns the fixed category list.
func (s *Service) Categories() []models.Category {
	return models.Categories()
}

// allByID lists the catalog in insertion order.
func (s *Service) allByID(ctx context.Context) ([]models.App, error) {
	apps, err := s.store.List(ctx, store.Filter{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return apps, nil
}
