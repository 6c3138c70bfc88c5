package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"menu-companion/docstore"
	"menu-companion/lang"
	"menu-companion/logger"
	"menu-companion/metric"
	"menu-companion/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const categoriesFlight = "categories"

// MenuState is an immutable snapshot of a menu session.
type MenuState struct {
	Language   string
	Categories []models.MenuItem
	Meals      map[string][]models.MenuItem
	Loading    bool
	Err        error
}

// MenuService loads the category list once per session and meal lists
// lazily per category. Meal groups sort in the service's language.
type MenuService struct {
	store   docstore.Store
	lang    string
	metrics *metric.Set
	log     zerolog.Logger

	mu         sync.RWMutex
	categories []models.MenuItem
	meals      map[string][]models.MenuItem
	loading    int
	err        error
	generation uint64 // bumped by Reload; results of older loads are discarded
	timeout    time.Duration

	flight singleflight.Group
}

// NewMenuService returns a session that sorts meal groups in langCode.
// Unsupported codes become Arabic. metrics may be nil.
func NewMenuService(store docstore.Store, langCode string, metrics *metric.Set) *MenuService {
	if metrics == nil {
		metrics = metric.NopSet()
	}
	code := lang.Normalize(langCode)
	return &MenuService{
		store:   store,
		lang:    code,
		metrics: metrics,
		log:     logger.For("menu").With().Str("lang", code).Logger(),
		meals:   make(map[string][]models.MenuItem),
		timeout: DefaultFetchTimeout,
	}
}

// Language is the normalized code the session was built with.
func (s *MenuService) Language() string {
	return s.lang
}

// LoadCategories fetches and sorts all categories. On failure the error is
// kept in the session state and earlier categories are left in place.
//
// Concurrent callers share one fetch. ctx only bounds how long this caller
// waits; the fetch itself runs until the load timeout.
func (s *MenuService) LoadCategories(ctx context.Context) ([]models.MenuItem, error) {
	ch := s.flight.DoChan(categoriesFlight, func() (interface{}, error) {
		gen := s.currentGeneration()
		s.setLoading(1)
		defer s.setLoading(-1)

		fctx, cancel := s.loadContext(ctx)
		defer cancel()
		items, err := s.store.Categories(fctx)
		if err != nil {
			err = fmt.Errorf("load categories: %w", err)
			s.fail(gen, "categories", err)
			return nil, err
		}
		sorted := SortCategories(items)
		if sorted == nil {
			sorted = []models.MenuItem{}
		}
		s.mu.Lock()
		if s.generation == gen {
			s.categories = sorted
		}
		s.mu.Unlock()
		s.metrics.MenuLoad("categories", "ok")
		s.log.Debug().Int("count", len(sorted)).Msg("categories loaded")
		return sorted, nil
	})
	return s.wait(ctx, ch)
}

// LoadMeals returns the sorted meals of a category, fetching them only the
// first time per session.
func (s *MenuService) LoadMeals(ctx context.Context, categoryID string) ([]models.MenuItem, error) {
	if categoryID == "" {
		return nil, fmt.Errorf("load meals: %w", models.ErrMissingID)
	}
	s.mu.RLock()
	cached, ok := s.meals[categoryID]
	s.mu.RUnlock()
	if ok {
		s.metrics.MenuLoad("meals", "cached")
		return cloneItems(cached), nil
	}

	ch := s.flight.DoChan("meals:"+categoryID, func() (interface{}, error) {
		// a flight that finished between the check above and here already cached it
		s.mu.RLock()
		cached, ok := s.meals[categoryID]
		gen := s.generation
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}
		fctx, cancel := s.loadContext(ctx)
		defer cancel()
		items, err := s.store.Meals(fctx, categoryID)
		if err != nil {
			err = fmt.Errorf("load meals of %s: %w", categoryID, err)
			s.fail(gen, "meals", err)
			return nil, err
		}
		sorted := SortMeals(items, s.lang)
		if sorted == nil {
			sorted = []models.MenuItem{}
		}
		s.mu.Lock()
		if s.generation == gen {
			s.meals[categoryID] = sorted
		}
		s.mu.Unlock()
		s.metrics.MenuLoad("meals", "ok")
		s.log.Debug().Str("category", categoryID).Int("count", len(sorted)).Msg("meals loaded")
		return sorted, nil
	})
	return s.wait(ctx, ch)
}

// loadContext detaches a shared fetch from the caller that happened to start
// it and bounds it by the load timeout instead.
func (s *MenuService) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if s.timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, s.timeout)
}

func (s *MenuService) wait(ctx context.Context, ch <-chan singleflight.Result) ([]models.MenuItem, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneItems(res.Val.([]models.MenuItem)), nil
	}
}

func (s *MenuService) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Reload clears the error and every loaded list, then loads categories again.
func (s *MenuService) Reload(ctx context.Context) ([]models.MenuItem, error) {
	s.mu.Lock()
	s.err = nil
	s.categories = nil
	s.meals = make(map[string][]models.MenuItem)
	s.generation++
	s.mu.Unlock()
	s.flight.Forget(categoriesFlight)
	return s.LoadCategories(ctx)
}

// Snapshot returns a copy of the current session state.
func (s *MenuService) Snapshot() MenuState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meals := make(map[string][]models.MenuItem, len(s.meals))
	for k, v := range s.meals {
		meals[k] = cloneItems(v)
	}
	return MenuState{
		Language:   s.lang,
		Categories: cloneItems(s.categories),
		Meals:      meals,
		Loading:    s.loading > 0,
		Err:        s.err,
	}
}

// Category returns a loaded category by id.
func (s *MenuService) Category(id string) (models.MenuItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return models.MenuItem{}, false
}

// EnsureCategories returns loaded categories, loading them if the session
// has none yet.
func (s *MenuService) EnsureCategories(ctx context.Context) ([]models.MenuItem, error) {
	s.mu.RLock()
	have := s.categories != nil
	cats := cloneItems(s.categories)
	s.mu.RUnlock()
	if have {
		return cats, nil
	}
	return s.LoadCategories(ctx)
}

func (s *MenuService) setLoading(delta int) {
	s.mu.Lock()
	s.loading += delta
	s.mu.Unlock()
}

// fail records err as the session error unless a Reload happened since the
// load started. Canceled loads are not failures of the menu.
func (s *MenuService) fail(gen uint64, what string, err error) {
	if errors.Is(err, context.Canceled) {
		s.log.Debug().Err(err).Msg("menu load canceled")
		return
	}
	s.metrics.MenuLoad(what, "error")
	s.log.Error().Err(err).Msg("menu load failed")
	s.mu.Lock()
	if s.generation == gen {
		s.err = err
	}
	s.mu.Unlock()
}

// MenuSessions keeps one MenuService per language so group ordering follows
// each reader's language.
type MenuSessions struct {
	store   docstore.Store
	metrics *metric.Set

	mu       sync.Mutex
	sessions map[string]*MenuService
}

// NewMenuSessions returns an empty set of sessions over store.
func NewMenuSessions(store docstore.Store, metrics *metric.Set) *MenuSessions {
	return &MenuSessions{store: store, metrics: metrics, sessions: make(map[string]*MenuService)}
}

// For returns the session for langCode; unknown codes share the Arabic one.
func (m *MenuSessions) For(langCode string) *MenuService {
	code := lang.Normalize(langCode)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[code]
	if !ok {
		s = NewMenuService(m.store, code, m.metrics)
		m.sessions[code] = s
	}
	return s
}

// ReloadAll reloads every session that exists. The first error is returned.
func (m *MenuSessions) ReloadAll(ctx context.Context) error {
	m.mu.Lock()
	all := make([]*MenuService, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()
	var first error
	for _, s := range all {
		if _, err := s.Reload(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
