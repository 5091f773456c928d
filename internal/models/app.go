package models

import "time"

const (
	DefaultVersion  = "1.0"
	DefaultCategory = "Other"
)

// App is a catalog entry: one installable package plus its metadata.
// URLs and formatted sizes are derived at response time and never stored.
type App struct {
	ID              uint      `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Name            string    `gorm:"column:name;size:255;not null" json:"name"`
	Description     string    `gorm:"column:description;type:text;not null" json:"description"`
	Version         string    `gorm:"column:version;size:50;default:'1.0'" json:"version"`
	Category        string    `gorm:"column:category;size:50;index" json:"category"`
	IconFilename    *string   `gorm:"column:icon_filename;size:255" json:"icon_filename"`
	APKFilename     string    `gorm:"column:apk_filename;size:255;not null" json:"apk_filename"`
	OriginalAPKName string    `gorm:"column:original_apk_name;size:255" json:"original_apk_name"`
	FileSize        int64     `gorm:"column:file_size;default:0" json:"file_size"`
	Downloads       int64     `gorm:"column:downloads;default:0" json:"downloads"`
	IsFeatured      bool      `gorm:"column:is_featured;default:false;index" json:"is_featured"`
	CreatedAt       time.Time `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (App) TableName() string {
	return "apps"
}

// Clone returns a deep copy so callers never share the icon pointer.
func (a App) Clone() App {
	if a.IconFilename != nil {
		icon := *a.IconFilename
		a.IconFilename = &icon
	}
	return a
}

// Counter is a named monotonic sequence. The apps id generator lives here so
// deleting the newest app never frees its id for reuse.
type Counter struct {
	Name  string `gorm:"column:name;primaryKey;size:50"`
	Value uint   `gorm:"column:value;not null;default:0"`
}

func (Counter) TableName() string {
	return "counters"
}
