package models

// Preference is a persisted server-side key/value setting.
type Preference struct {
	ID    uint   `gorm:"column:id;primaryKey"`
	Key   string `gorm:"column:key;size:100;uniqueIndex;not null"`
	Value string `gorm:"column:value;type:text"`
}

func (Preference) TableName() string {
	return "preferences"
}
