package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BayRex1/bayrex-apk/internal/blob"
	"github.com/BayRex1/bayrex-apk/internal/models"
	"github.com/BayRex1/bayrex-apk/internal/store"
)

func seeded(t *testing.T) (*Service, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	n, err := store.Seed(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	return NewService(s, "@BayRex"), s
}

func names(views []AppView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Name
	}
	return out
}

func TestQueryTotalIgnoresPaging(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	for _, tc := range []struct{ limit, offset, want int }{
		{0, 0, 4},
		{2, 0, 2},
		{2, 2, 2},
		{2, 3, 1},
		{3, 10, 0},
		{-1, -1, 4},
	} {
		page, err := svc.Query(ctx, Query{Limit: tc.limit, Offset: tc.offset})
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)
		assert.Len(t, page.Apps, tc.want, "limit=%d offset=%d", tc.limit, tc.offset)
		assert.NotNil(t, page.Apps)
	}

	page, err := svc.Query(ctx, Query{Category: "Entertainment", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Apps, 1)
}

func TestQuerySearchAndSort(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	page, err := svc.Query(ctx, Query{Search: "Tele"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Telegram"}, names(page.Apps))

	page, err = svc.Query(ctx, Query{Sort: store.SortPopular})
	require.NoError(t, err)
	assert.Equal(t, []string{"YouTube", "WhatsApp Messenger", "Telegram", "Spotify Music"}, names(page.Apps))

	page, err = svc.Query(ctx, Query{Featured: true, Sort: store.SortName})
	require.NoError(t, err)
	assert.Equal(t, []string{"Telegram", "WhatsApp Messenger", "YouTube"}, names(page.Apps))
}

func TestView(t *testing.T) {
	icon := "1700000000000-abc.png"
	app := models.App{
		ID:          7,
		Name:        "X",
		APKFilename: "1700000000000-def.apk",
		FileSize:    45892000,
		CreatedAt:   time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC),
	}

	v := View(app)
	assert.Nil(t, v.IconURL)
	assert.Equal(t, "/uploads/apks/1700000000000-def.apk", v.APKURL)
	assert.Equal(t, "43.77", v.FileSizeMB)
	assert.Equal(t, "09.03.2024", v.CreatedAtFormatted)

	app.IconFilename = &icon
	v = View(app)
	require.NotNil(t, v.IconURL)
	assert.Equal(t, "/uploads/icons/"+icon, *v.IconURL)
	assert.Equal(t, BlobURL(blob.KindIcon, icon), *v.IconURL)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "X", decoded["name"])
	assert.Equal(t, "43.77", decoded["file_size_mb"])
	assert.Contains(t, decoded, "icon_url")
}

func TestViewIsDeterministic(t *testing.T) {
	svc, s := seeded(t)
	ctx := context.Background()

	app, err := s.Get(ctx, 2)
	require.NoError(t, err)
	first, err := json.Marshal(View(*app))
	require.NoError(t, err)

	page, err := svc.Query(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, page.Apps, 4)

	again, err := s.Get(ctx, 2)
	require.NoError(t, err)
	second, err := json.Marshal(View(*again))
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestSearch(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	res, err := svc.Search(ctx, "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.NotNil(t, res.Results)
	assert.Equal(t, 0, res.Count)

	res, err = svc.Search(ctx, "tele", 0)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "Telegram", res.Results[0].Name)
	assert.Equal(t, "tele", res.Query)

	res, err = svc.Search(ctx, "и", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
}

func TestStats(t *testing.T) {
	svc, s := seeded(t)
	ctx := context.Background()

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalApps)
	assert.Equal(t, int64(5080), st.TotalDownloads)
	assert.Equal(t, "308.05", st.TotalSizeMB)
	assert.Equal(t, 3, st.FeaturedApps)
	require.NotNil(t, st.TopApp)
	assert.Equal(t, TopApp{Name: "YouTube", Downloads: 2100}, *st.TopApp)

	for id := uint(1); id <= 4; id++ {
		_, err := s.Delete(ctx, id)
		require.NoError(t, err)
	}
	st, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalApps)
	assert.Equal(t, "0.00", st.TotalSizeMB)
	assert.Nil(t, st.TopApp)
}

func TestInfoAndCategories(t *testing.T) {
	svc, _ := seeded(t)

	info, err := svc.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ServiceName, info.Name)
	assert.Equal(t, "@BayRex", info.Admin)
	assert.Equal(t, 4, info.TotalApps)
	assert.Equal(t, int64(5080), info.TotalDownloads)

	cats := svc.Categories()
	require.Len(t, cats, 7)
	assert.Equal(t, "Social", cats[0].Name)
	assert.Equal(t, "Other", cats[6].Name)
}
