package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BayRex1/bayrex-apk/internal/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type factory func(t *testing.T, clock func() time.Time) Store

func newMemory(_ *testing.T, clock func() time.Time) Store {
	s := NewMemoryStore()
	s.now = clock
	return s
}

func newSQLite(t *testing.T, clock func() time.Time) Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	s, err := NewGormStore(db)
	require.NoError(t, err)
	s.now = clock
	return s
}

func backends() map[string]factory {
	return map[string]factory{
		"memory": newMemory,
		"sqlite": newSQLite,
	}
}

func newApp(name, desc string) *models.App {
	return &models.App{Name: name, Description: desc, APKFilename: name + ".apk"}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, mk := range backends() {
		mk := mk
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
			fn(t, mk(t, clock.now))
		})
	}
}

func TestCreateAssignsDefaults(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		app := &models.App{
			Name:        "  X ",
			Description: "Y",
			APKFilename: "x.apk",
		}
		require.NoError(t, s.Create(ctx, app))

		assert.Equal(t, uint(1), app.ID)
		assert.Equal(t, "X", app.Name)
		assert.Equal(t, models.DefaultVersion, app.Version)
		assert.Equal(t, models.DefaultCategory, app.Category)
		assert.Nil(t, app.IconFilename)
		assert.False(t, app.CreatedAt.IsZero())
		assert.Equal(t, app.CreatedAt, app.UpdatedAt)

		got, err := s.Get(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, "X", got.Name)
		assert.Equal(t, int64(0), got.Downloads)
		assert.False(t, got.IsFeatured)
	})
}

func TestCreateRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		app := &models.App{Name: "X", Description: "Y", Version: "2.0", Category: "Tools", APKFilename: "x.apk"}
		require.NoError(t, s.Create(ctx, app))

		got, err := s.Get(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, "X", got.Name)
		assert.Equal(t, "Y", got.Description)
		assert.Equal(t, "2.0", got.Version)
		assert.Equal(t, "Tools", got.Category)
		assert.Equal(t, int64(0), got.Downloads)
		assert.False(t, got.IsFeatured)
	})
}

func TestCreateValidation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		cases := map[string]*models.App{
			"name":        {Description: "d", APKFilename: "a.apk"},
			"description": {Name: "n", APKFilename: "a.apk"},
			"apk":         {Name: "n", Description: "d"},
		}
		for field, app := range cases {
			err := s.Create(ctx, app)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve, field)
			assert.Equal(t, field, ve.Field)
		}
		n, err := s.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestIDsNeverReused(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var last uint
		for i := 0; i < 3; i++ {
			app := newApp("app", "desc")
			require.NoError(t, s.Create(ctx, app))
			assert.Greater(t, app.ID, last)
			last = app.ID
		}

		_, err := s.Delete(ctx, last)
		require.NoError(t, err)

		app := newApp("again", "desc")
		require.NoError(t, s.Create(ctx, app))
		assert.Equal(t, last+1, app.ID)
	})
}

func TestGetUnknown(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		_, err := s.Get(context.Background(), 42)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateMergesFields(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		icon := "icon.png"
		app := newApp("Telegram", "messenger")
		app.IconFilename = &icon
		app.OriginalAPKName = "Telegram.apk"
		app.FileSize = 100
		require.NoError(t, s.Create(ctx, app))
		_, err := s.IncrementDownloads(ctx, app.ID)
		require.NoError(t, err)

		name := "Telegram X"
		featured := true
		emptyVersion := ""
		updated, err := s.Update(ctx, app.ID, Patch{Name: &name, IsFeatured: &featured, Version: &emptyVersion})
		require.NoError(t, err)

		assert.Equal(t, "Telegram X", updated.Name)
		assert.Equal(t, "messenger", updated.Description)
		assert.Equal(t, models.DefaultVersion, updated.Version)
		assert.True(t, updated.IsFeatured)
		assert.Equal(t, int64(1), updated.Downloads)
		require.NotNil(t, updated.IconFilename)
		assert.Equal(t, "icon.png", *updated.IconFilename)
		assert.Equal(t, app.APKFilename, updated.APKFilename)
		assert.Equal(t, int64(100), updated.FileSize)
		assert.True(t, updated.UpdatedAt.After(app.UpdatedAt))
		assert.Equal(t, app.CreatedAt.Unix(), updated.CreatedAt.Unix())
	})
}

func TestUpdateReplacesFiles(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		app := newApp("a", "b")
		require.NoError(t, s.Create(ctx, app))

		apk, orig, size, icon := "new.apk", "New.apk", int64(2048), "new.png"
		updated, err := s.Update(ctx, app.ID, Patch{APKFilename: &apk, OriginalAPKName: &orig, FileSize: &size, IconFilename: &icon})
		require.NoError(t, err)
		assert.Equal(t, "new.apk", updated.APKFilename)
		assert.Equal(t, "New.apk", updated.OriginalAPKName)
		assert.Equal(t, int64(2048), updated.FileSize)
		assert.Equal(t, "new.png", *updated.IconFilename)
	})
}

func TestUpdateErrors(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		name := "x"
		_, err := s.Update(ctx, 7, Patch{Name: &name})
		assert.ErrorIs(t, err, ErrNotFound)

		app := newApp("a", "b")
		require.NoError(t, s.Create(ctx, app))
		blank := "   "
		_, err = s.Update(ctx, app.ID, Patch{Name: &blank})
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve)

		got, err := s.Get(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, "a", got.Name)
	})
}

func TestDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		app := newApp("a", "b")
		require.NoError(t, s.Create(ctx, app))

		_, err := s.Delete(ctx, 99)
		assert.ErrorIs(t, err, ErrNotFound)
		n, _ := s.Len(ctx)
		assert.Equal(t, 1, n)

		deleted, err := s.Delete(ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, "a", deleted.Name)

		_, err = s.Get(ctx, app.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		n, _ = s.Len(ctx)
		assert.Zero(t, n)
	})
}

func TestIncrementDownloads(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := newApp("a", "b")
		other := newApp("c", "d")
		require.NoError(t, s.Create(ctx, a))
		require.NoError(t, s.Create(ctx, other))

		for i := 1; i <= 5; i++ {
			n, err := s.IncrementDownloads(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(i), n)
			_, err = s.List(ctx, Filter{})
			require.NoError(t, err)
			_, err = s.IncrementDownloads(ctx, other.ID)
			require.NoError(t, err)
		}

		got, err := s.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), got.Downloads)

		_, err = s.IncrementDownloads(ctx, 1000)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListFiltersAndSorts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := Seed(ctx, s)
		require.NoError(t, err)

		names := func(apps []models.App) []string {
			out := make([]string, len(apps))
			for i := range apps {
				out[i] = apps[i].Name
			}
			return out
		}

		all, err := s.List(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"YouTube", "Spotify Music", "Telegram", "WhatsApp Messenger"}, names(all))

		tele, err := s.List(ctx, Filter{Search: "tele"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Telegram"}, names(tele))

		byDescription, err := s.List(ctx, Filter{Search: "ПОДКАСТОВ"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Spotify Music"}, names(byDescription))

		social, err := s.List(ctx, Filter{Category: "Social", Sort: SortName})
		require.NoError(t, err)
		assert.Equal(t, []string{"Telegram", "WhatsApp Messenger"}, names(social))

		featured, err := s.List(ctx, Filter{FeaturedOnly: true, Sort: SortPopular})
		require.NoError(t, err)
		assert.Equal(t, []string{"YouTube", "WhatsApp Messenger", "Telegram"}, names(featured))

		none, err := s.List(ctx, Filter{Category: "Games"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestListReturnsCopies(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Create(ctx, newApp("a", "b")))
		apps, err := s.List(ctx, Filter{})
		require.NoError(t, err)
		apps[0].Name = "mutated"

		got, err := s.Get(ctx, apps[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "a", got.Name)
	})
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		n, err := Seed(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		n, err = Seed(ctx, s)
		require.NoError(t, err)
		assert.Zero(t, n)

		yt, err := s.Get(ctx, 4)
		require.NoError(t, err)
		assert.Equal(t, int64(2100), yt.Downloads)
	})
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortPopular, ParseSort("Popular"))
	assert.Equal(t, SortName, ParseSort(" name "))
	assert.Equal(t, SortNewest, ParseSort(""))
	assert.Equal(t, SortNewest, ParseSort("random"))
}

func TestSortNameIsStable(t *testing.T) {
	apps := []models.App{
		{ID: 1, Name: "beta"},
		{ID: 2, Name: "Alpha"},
		{ID: 3, Name: "beta"},
		{ID: 4, Name: "alpha"},
	}
	sortApps(apps, SortName)
	assert.Equal(t, "beta", apps[2].Name)
	assert.Equal(t, uint(1), apps[2].ID)
	assert.Equal(t, uint(3), apps[3].ID)
}

func TestWrapKeepsSentinels(t *testing.T) {
	assert.Same(t, ErrNotFound, wrap("x", ErrNotFound))
	err := wrap("x", errors.New("boom"))
	assert.EqualError(t, err, "store: x: boom")
}
