package client

import "time"

// App is a catalog entry as served by the API.
type App struct {
	ID                 uint      `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Version            string    `json:"version"`
	Category           string    `json:"category"`
	IconFilename       *string   `json:"icon_filename"`
	APKFilename        string    `json:"apk_filename"`
	OriginalAPKName    string    `json:"original_apk_name"`
	FileSize           int64     `json:"file_size"`
	Downloads          int64     `json:"downloads"`
	IsFeatured         bool      `json:"is_featured"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	IconURL            *string   `json:"icon_url"`
	APKURL             string    `json:"apk_url"`
	FileSizeMB         string    `json:"file_size_mb"`
	CreatedAtFormatted string    `json:"created_at_formatted"`
}

func (a App) clone() App {
	if a.IconFilename != nil {
		v := *a.IconFilename
		a.IconFilename = &v
	}
	if a.IconURL != nil {
		v := *a.IconURL
		a.IconURL = &v
	}
	return a
}

type Page struct {
	Apps  []App `json:"apps"`
	Total int   `json:"total"`
}

type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
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

type Info struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Description    string `json:"description"`
	Admin          string `json:"admin"`
	TotalApps      int    `json:"total_apps"`
	TotalDownloads int64  `json:"total_downloads"`
}

type Download struct {
	DownloadURL      string `json:"download_url"`
	OriginalFilename string `json:"original_filename"`
	Downloads        int64  `json:"downloads"`
	AppName          string `json:"app_name"`
}

// AuthStatus is the answer of /api/check-auth.
type AuthStatus struct {
	Authenticated bool
	Username      string
}

// ListOptions selects a page of apps. Zero values mean "no filter",
// newest first and no paging.
type ListOptions struct {
	Search   string
	Category string
	Featured bool
	Sort     string
	Limit    int
	Offset   int
}
