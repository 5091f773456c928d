package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/BayRex1/bayrex-apk/internal/models"
)

const appsCounter = "apps"

// GormStore persists the catalog through GORM. Category and featured filters
// run in SQL; search and ordering run in Go so case folding and collation
// behave exactly like MemoryStore regardless of the SQL dialect.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore migrates the schema and seeds the id sequence from the
// current maximum id.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := models.AutoMigrate(db); err != nil {
		return nil, wrap("migrate", err)
	}

	var maxID uint
	if err := db.Model(&models.App{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
		return nil, wrap("read max id", err)
	}
	counter := models.Counter{Name: appsCounter, Value: maxID}
	if err := db.Where(models.Counter{Name: appsCounter}).FirstOrCreate(&counter).Error; err != nil {
		return nil, wrap("init id sequence", err)
	}
	if counter.Value < maxID {
		if err := db.Model(&counter).Update("value", maxID).Error; err != nil {
			return nil, wrap("init id sequence", err)
		}
	}

	return &GormStore{db: db, now: time.Now}, nil
}

func (s *GormStore) Create(ctx context.Context, app *models.App) error {
	if err := prepareNew(app); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := nextID(tx)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		app.ID = id
		app.CreatedAt = now
		app.UpdatedAt = now
		return tx.Create(app).Error
	})
	return wrap("create app", err)
}

// nextID bumps the sequence row; the UPDATE holds the row lock until commit.
func nextID(tx *gorm.DB) (uint, error) {
	res := tx.Model(&models.Counter{}).
		Where("name = ?", appsCounter).
		Update("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if err := tx.Create(&models.Counter{Name: appsCounter, Value: 1}).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}

	var counter models.Counter
	if err := tx.Where("name = ?", appsCounter).First(&counter).Error; err != nil {
		return 0, err
	}
	return counter.Value, nil
}

func (s *GormStore) Get(ctx context.Context, id uint) (*models.App, error) {
	var app models.App
	if err := s.db.WithContext(ctx).First(&app, id).Error; err != nil {
		return nil, wrap("get app", notFound(err))
	}
	return &app, nil
}

func (s *GormStore) Update(ctx context.Context, id uint, patch Patch) (*models.App, error) {
	var app models.App
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, id).Error; err != nil {
			return notFound(err)
		}
		if err := applyPatch(&app, patch); err != nil {
			return err
		}
		app.UpdatedAt = s.now().UTC()
		return tx.Save(&app).Error
	})
	if err != nil {
		return nil, wrap("update app", err)
	}
	return &app, nil
}

func (s *GormStore) Delete(ctx context.Context, id uint) (*models.App, error) {
	var app models.App
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, id).Error; err != nil {
			return notFound(err)
		}
		return tx.Delete(&models.App{}, id).Error
	})
	if err != nil {
		return nil, wrap("delete app", err)
	}
	return &app, nil
}

func (s *GormStore) List(ctx context.Context, filter Filter) ([]models.App, error) {
	query := s.db.WithContext(ctx).Model(&models.App{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.FeaturedOnly {
		query = query.Where("is_featured = ?", true)
	}

	var apps []models.App
	if err := query.Order("id ASC").Find(&apps).Error; err != nil {
		return nil, wrap("list apps", err)
	}
	return apply(apps, filter), nil
}

func (s *GormStore) IncrementDownloads(ctx context.Context, id uint) (int64, error) {
	var downloads int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.App{}).
			Where("id = ?", id).
			Update("downloads", gorm.Expr("downloads + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.App{}).Where("id = ?", id).Select("downloads").Scan(&downloads).Error
	})
	if err != nil {
		return 0, wrap("increment downloads", err)
	}
	return downloads, nil
}

func (s *GormStore) Len(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.App{}).Count(&count).Error; err != nil {
		return 0, wrap("count apps", err)
	}
	return int(count), nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
