package client

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	DefaultDebounce = 500 * time.Millisecond
	DefaultPageSize = 12
)

// Snapshot is a copy of the mirrored state. Values from separate fetches may
// reflect slightly different moments on the server.
type Snapshot struct {
	Query         ListOptions
	Apps          []App
	Total         int
	Categories    []Category
	Stats         *Stats
	AdminApps     []App
	Authenticated bool
	Username      string
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Apps = cloneApps(s.Apps)
	out.AdminApps = cloneApps(s.AdminApps)
	if s.Categories != nil {
		out.Categories = append([]Category(nil), s.Categories...)
	}
	if s.Stats != nil {
		st := *s.Stats
		if st.TopApp != nil {
			top := *st.TopApp
			st.TopApp = &top
		}
		out.Stats = &st
	}
	return out
}

func cloneApps(apps []App) []App {
	if apps == nil {
		return nil
	}
	out := make([]App, len(apps))
	for i := range apps {
		out[i] = apps[i].clone()
	}
	return out
}

// Sync keeps a local mirror of the catalog consistent with the server by
// re-fetching after every mutation. Page requests carry a sequence number and
// a response is applied only if it answers the most recently issued request,
// so a slow response to an outdated search never overwrites a newer one.
type Sync struct {
	client   *Client
	debounce time.Duration
	onChange func(Snapshot)

	mu     sync.Mutex
	state  Snapshot
	seq    uint64
	timer  *time.Timer
	closed bool
}

type SyncOption func(*Sync)

// WithDebounce sets the delay between the last SetSearch and the request.
func WithDebounce(d time.Duration) SyncOption {
	return func(s *Sync) { s.debounce = d }
}

// WithPageSize sets the page size of the mirrored listing.
func WithPageSize(n int) SyncOption {
	return func(s *Sync) { s.state.Query.Limit = n }
}

// WithOnChange registers a callback invoked with a fresh snapshot after every
// applied update. It runs on the goroutine that applied the update.
func WithOnChange(fn func(Snapshot)) SyncOption {
	return func(s *Sync) { s.onChange = fn }
}

func NewSync(c *Client, opts ...SyncOption) *Sync {
	s := &Sync{
		client:   c,
		debounce: DefaultDebounce,
	}
	s.state.Query = ListOptions{Sort: "newest", Limit: DefaultPageSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Sync) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Close stops a pending debounced search.
func (s *Sync) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

// Refresh re-fetches every mirrored resource concurrently. All fetches run
// even if one fails; the errors are joined.
func (s *Sync) Refresh(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}

	run(s.loadPage)
	run(s.loadCategories)
	run(s.loadStats)
	run(s.loadAuth)
	wg.Wait()
	return errors.Join(errs...)
}

// SetSearch schedules a page load for q after the debounce delay. Calls
// within the delay replace each other.
func (s *Sync) SetSearch(ctx context.Context, q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.state.Query.Search = q
	s.state.Query.Offset = 0
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		_ = s.loadPage(ctx)
	})
}

// SetCategory filters the listing and reloads it at once.
func (s *Sync) SetCategory(ctx context.Context, category string) error {
	s.mu.Lock()
	s.state.Query.Category = category
	s.state.Query.Offset = 0
	s.mu.Unlock()
	return s.loadPage(ctx)
}

// SetSort changes the order of the listing and reloads it.
func (s *Sync) SetSort(ctx context.Context, sort string) error {
	s.mu.Lock()
	s.state.Query.Sort = sort
	s.state.Query.Offset = 0
	s.mu.Unlock()
	return s.loadPage(ctx)
}

// SetFeatured restricts the listing to featured apps.
func (s *Sync) SetFeatured(ctx context.Context, featured bool) error {
	s.mu.Lock()
	s.state.Query.Featured = featured
	s.state.Query.Offset = 0
	s.mu.Unlock()
	return s.loadPage(ctx)
}

// SetPage moves to the zero-based page n.
func (s *Sync) SetPage(ctx context.Context, n int) error {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	s.state.Query.Offset = n * s.state.Query.Limit
	s.mu.Unlock()
	return s.loadPage(ctx)
}

func (s *Sync) Login(ctx context.Context, username, password, code string) error {
	return s.mutate(ctx, func() error {
		return s.client.Login(ctx, username, password, code)
	})
}

func (s *Sync) Logout(ctx context.Context) error {
	return s.mutate(ctx, func() error {
		return s.client.Logout(ctx)
	})
}

func (s *Sync) Create(ctx context.Context, in AppInput) (*App, error) {
	var app *App
	err := s.mutate(ctx, func() (err error) {
		app, err = s.client.CreateApp(ctx, in)
		return err
	})
	return app, err
}

func (s *Sync) Update(ctx context.Context, id uint, in AppInput) (*App, error) {
	var app *App
	err := s.mutate(ctx, func() (err error) {
		app, err = s.client.UpdateApp(ctx, id, in)
		return err
	})
	return app, err
}

func (s *Sync) Delete(ctx context.Context, id uint) (*App, error) {
	var app *App
	err := s.mutate(ctx, func() (err error) {
		app, err = s.client.DeleteApp(ctx, id)
		return err
	})
	return app, err
}

func (s *Sync) Download(ctx context.Context, id uint) (*Download, error) {
	var d *Download
	err := s.mutate(ctx, func() (err error) {
		d, err = s.client.Download(ctx, id)
		return err
	})
	return d, err
}

// mutate runs fn and refreshes whether or not it succeeded, since a failed
// request may still have changed server state. fn's error wins.
func (s *Sync) mutate(ctx context.Context, fn func() error) error {
	err := fn()
	if rerr := s.Refresh(ctx); err == nil {
		err = rerr
	}
	return err
}

func (s *Sync) loadPage(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	query := s.state.Query
	s.mu.Unlock()

	page, err := s.client.ListApps(ctx, query)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state.Apps = page.Apps
	s.state.Total = page.Total
	s.mu.Unlock()

	s.changed()
	return nil
}

func (s *Sync) loadCategories(ctx context.Context) error {
	cats, err := s.client.Categories(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state.Categories = cats
	s.mu.Unlock()
	s.changed()
	return nil
}

func (s *Sync) loadStats(ctx context.Context) error {
	st, err := s.client.Stats(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state.Stats = st
	s.mu.Unlock()
	s.changed()
	return nil
}

// loadAuth refreshes the auth flag and, for an admin, the unpaged list of
// every app.
func (s *Sync) loadAuth(ctx context.Context) error {
	status, err := s.client.CheckAuth(ctx)
	if err != nil {
		return err
	}

	var all []App
	if status.Authenticated {
		page, err := s.client.ListApps(ctx, ListOptions{})
		if err != nil {
			return err
		}
		all = page.Apps
	}

	s.mu.Lock()
	s.state.Authenticated = status.Authenticated
	s.state.Username = status.Username
	s.state.AdminApps = all
	s.mu.Unlock()
	s.changed()
	return nil
}

func (s *Sync) changed() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.Snapshot())
}
