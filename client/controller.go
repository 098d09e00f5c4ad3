package client

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"menu-admin/models"
	"menu-admin/validation"
)

type Phase int

const (
	Loading Phase = iota
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var (
	ErrNotReady    = errors.New("menu not loaded")
	ErrNotFailed   = errors.New("retry is only possible after a failed load")
	ErrItemBusy    = errors.New("a change to this item is still in flight")
	ErrUnknownItem = errors.New("item is not in the local menu")
)

// API is the server surface the controller drives. *Client implements it.
type API interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListItems(ctx context.Context) ([]models.MenuItem, error)
	CreateItem(ctx context.Context, in models.MenuItemInput) (*models.MenuItem, error)
	UpdateItem(ctx context.Context, id int64, in models.MenuItemInput) (*models.MenuItem, error)
	SetAvailability(ctx context.Context, id int64, available bool) (*models.MenuItem, error)
}

// Form is the add/edit form state. ID zero means a new item.
type Form struct {
	ID int64
	models.MenuItemInput
}

type Group struct {
	Category models.Category
	Items    []models.MenuItem
}

// createKey marks the single in-flight create in the busy set; real ids
// are always positive.
const createKey int64 = 0

// Controller holds the admin's copy of the menu. The copy only ever moves
// toward records returned by the server: a successful write replaces the
// local entry wholesale, a failed one leaves it alone. The mutex is never
// held across a network call.
type Controller struct {
	api   API
	rules validation.RuleSet

	mu         sync.Mutex
	phase      Phase
	loadErr    error
	categories []models.Category
	catNames   map[int64]string
	items      map[int64]models.MenuItem
	busy       map[int64]bool
	// seq counts merges; version[id] is the seq of the last merge of id.
	seq     uint64
	version map[int64]uint64
}

func NewController(api API) *Controller {
	return &Controller{
		api:      api,
		rules:    validation.Client,
		phase:    Loading,
		catNames: make(map[int64]string),
		items:    make(map[int64]models.MenuItem),
		busy:     make(map[int64]bool),
		version:  make(map[int64]uint64),
	}
}

// Load fetches categories and items concurrently. Both must succeed for the
// controller to become Ready; either failure moves it to Failed. Records
// merged while the lists were in flight are kept unless the listed copy is
// newer, so a reload never rolls back a write the server already confirmed.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.phase = Loading
	c.loadErr = nil
	start := c.seq
	c.mu.Unlock()

	var (
		cats  []models.Category
		items []models.MenuItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cats, err = c.api.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = c.api.ListItems(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.mu.Lock()
		c.phase = Failed
		c.loadErr = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = cats
	c.catNames = make(map[int64]string, len(cats))
	for _, cat := range cats {
		c.catNames[cat.ID] = cat.Name
	}
	fresh := make(map[int64]models.MenuItem, len(items))
	for _, it := range items {
		fresh[it.ID] = it
	}
	for id, v := range c.version {
		if v <= start {
			continue
		}
		merged, ok := c.items[id]
		if !ok {
			continue
		}
		if listed, ok := fresh[id]; ok && listed.UpdatedAt.After(merged.UpdatedAt) {
			continue
		}
		fresh[id] = merged
	}
	c.items = make(map[int64]models.MenuItem, len(fresh))
	for id, it := range fresh {
		c.items[id] = c.withCategoryLocked(it)
	}
	c.phase = Ready
	return nil
}

// Retry reloads after a failed load.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	phase := c.phase
	c.mu.Unlock()
	if phase != Failed {
		return ErrNotFailed
	}
	return c.Load(ctx)
}

// Phase returns the screen state and, when Failed, the load error.
func (c *Controller) Phase() (Phase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase, c.loadErr
}

func (c *Controller) Categories() []models.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Category(nil), c.categories...)
}

func (c *Controller) Item(id int64) (models.MenuItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	return it, ok
}

// Busy reports whether a mutation for id is in flight; callers disable the
// item's controls while it is.
func (c *Controller) Busy(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[id]
}

// Items returns every held item in list order.
func (c *Controller) Items() []models.MenuItem {
	return c.Filter(0)
}

// Filter projects the held items onto one category; 0 means all. It never
// touches the network.
func (c *Controller) Filter(categoryID int64) []models.MenuItem {
	c.mu.Lock()
	out := make([]models.MenuItem, 0, len(c.items))
	for _, it := range c.items {
		if categoryID == 0 || it.CategoryID == categoryID {
			out = append(out, it)
		}
	}
	c.mu.Unlock()
	sortItems(out)
	return out
}

// Grouped buckets the held items by category, in category order. Empty
// categories are kept.
func (c *Controller) Grouped() []Group {
	cats := c.Categories()
	items := c.Items()
	idx := make(map[int64]int, len(cats))
	groups := make([]Group, len(cats))
	for i, cat := range cats {
		groups[i].Category = cat
		idx[cat.ID] = i
	}
	for _, it := range items {
		if i, ok := idx[it.CategoryID]; ok {
			groups[i].Items = append(groups[i].Items, it)
		}
	}
	return groups
}

// ToggleAvailability flips is_available for id on the server and merges the
// returned record.
func (c *Controller) ToggleAvailability(ctx context.Context, id int64) (models.MenuItem, error) {
	cur, err := c.begin(id, true)
	if err != nil {
		return models.MenuItem{}, err
	}
	defer c.end(id)

	item, err := c.api.SetAvailability(ctx, id, !cur.IsAvailable)
	if err != nil {
		return models.MenuItem{}, err
	}
	return c.merge(*item), nil
}

// SaveItem creates (ID zero) or fully replaces an item. The client rules run
// first and short-circuit with validation.Violations before any request.
func (c *Controller) SaveItem(ctx context.Context, f Form) (models.MenuItem, error) {
	if v := c.rules.Validate(validation.CandidateFrom(f.MenuItemInput)); v != nil {
		return models.MenuItem{}, v
	}

	key := f.ID
	if key < 0 {
		return models.MenuItem{}, ErrUnknownItem
	}
	if _, err := c.begin(key, key != createKey); err != nil {
		return models.MenuItem{}, err
	}
	defer c.end(key)

	var (
		item *models.MenuItem
		err  error
	)
	if key == createKey {
		item, err = c.api.CreateItem(ctx, f.MenuItemInput)
	} else {
		item, err = c.api.UpdateItem(ctx, f.ID, f.MenuItemInput)
	}
	if err != nil {
		return models.MenuItem{}, err
	}
	return c.merge(*item), nil
}

// EditForm returns a form prefilled from the held record.
func (c *Controller) EditForm(id int64) (Form, error) {
	it, ok := c.Item(id)
	if !ok {
		return Form{}, ErrUnknownItem
	}
	return Form{ID: id, MenuItemInput: it.Input()}, nil
}

func (c *Controller) begin(key int64, mustExist bool) (models.MenuItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Ready {
		return models.MenuItem{}, ErrNotReady
	}
	cur, ok := c.items[key]
	if mustExist && !ok {
		return models.MenuItem{}, ErrUnknownItem
	}
	if c.busy[key] {
		return models.MenuItem{}, ErrItemBusy
	}
	c.busy[key] = true
	return cur, nil
}

func (c *Controller) end(key int64) {
	c.mu.Lock()
	delete(c.busy, key)
	c.mu.Unlock()
}

// merge replaces the local entry with the canonical record.
func (c *Controller) merge(item models.MenuItem) models.MenuItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	item = c.withCategoryLocked(item)
	c.items[item.ID] = item
	c.seq++
	c.version[item.ID] = c.seq
	return item
}

// withCategoryLocked derives category_name from the held category set. A
// category the client has not loaded yet keeps the name the server sent.
func (c *Controller) withCategoryLocked(it models.MenuItem) models.MenuItem {
	if name, ok := c.catNames[it.CategoryID]; ok {
		it.CategoryName = name
	}
	return it
}

func sortItems(items []models.MenuItem) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.CategoryName != b.CategoryName {
			return a.CategoryName < b.CategoryName
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}
