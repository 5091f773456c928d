package catalog

import (
	"fmt"
	"time"

	"github.com/BayRex1/bayrex-apk/internal/blob"
	"github.com/BayRex1/bayrex-apk/internal/models"
)

// UploadsPrefix is the URL path under which stored blobs are served.
const UploadsPrefix = "/uploads"

// DateLayout renders created_at as dd.mm.yyyy.
const DateLayout = "02.01.2006"

// AppView is an App as returned by the API, with derived fields filled in.
type AppView struct {
	models.App
	IconURL            *string `json:"icon_url"`
	APKURL             string  `json:"apk_url"`
	FileSizeMB         string  `json:"file_size_mb"`
	CreatedAtFormatted string  `json:"created_at_formatted"`
}

// BlobURL returns the public path of a stored blob.
func BlobURL(kind blob.Kind, name string) string {
	return fmt.Sprintf("%s/%s/%s", UploadsPrefix, kind, name)
}

// FormatMB renders a byte count in megabytes with two decimals.
func FormatMB(size int64) string {
	return fmt.Sprintf("%.2f", float64(size)/(1024*1024))
}

// View derives the response-only fields of app. Everything is computed from
// stored values, so two views of an unchanged app are identical.
func View(app models.App) AppView {
	v := AppView{
		App:                app.Clone(),
		APKURL:             BlobURL(blob.KindAPK, app.APKFilename),
		FileSizeMB:         FormatMB(app.FileSize),
		CreatedAtFormatted: app.CreatedAt.In(time.UTC).Format(DateLayout),
	}
	if app.IconFilename != nil {
		u := BlobURL(blob.KindIcon, *app.IconFilename)
		v.IconURL = &u
	}
	return v
}

// Views maps View over apps.
func Views(apps []models.App) []AppView {
	out := make([]AppView, len(apps))
	for i := range apps {
		out[i] = View(apps[i])
	}
	return out
}
