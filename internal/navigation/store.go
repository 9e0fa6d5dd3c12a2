package navigation

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/kazz187/taskboard/internal/eventbus"
)

// Store tracks the navigation entries and which one is active. At most one
// entry is active; the default entry is always present.
type Store struct {
	mu        sync.RWMutex
	bus       *eventbus.Bus
	initial   []Item
	items     []*Item
	collapsed bool
	// initial sidebar state; Reset always expands
	startCollapsed bool
}

type Option func(*Store)

func WithEventBus(bus *eventbus.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

// WithItems seeds the store. The default entry is added when missing and
// duplicate ids after the first are dropped.
func WithItems(items []Item) Option {
	return func(s *Store) { s.initial = slices.Clone(items) }
}

func WithSidebarCollapsed(collapsed bool) Option {
	return func(s *Store) { s.startCollapsed = collapsed }
}

func NewStore(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	s.resetLocked()
	s.collapsed = s.startCollapsed
	return s
}

func (s *Store) resetLocked() {
	s.collapsed = false
	s.items = s.items[:0]
	seen := map[string]bool{}
	activeID := ""
	for _, it := range s.initial {
		if it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		c := it
		if c.ID == DefaultItemID {
			c.Disabled = false
		}
		if c.Active && activeID == "" && !c.Disabled {
			activeID = c.ID
		}
		c.Active = false
		s.items = append(s.items, &c)
	}
	if !seen[DefaultItemID] {
		s.items = slices.Insert(s.items, 0, defaultItem())
	}
	if activeID == "" {
		activeID = DefaultItemID
	}
	s.activate(activeID)
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(it *Item) bool { return it.ID == id })
}

func (s *Store) activate(id string) {
	for _, it := range s.items {
		it.Active = it.ID == id
	}
}

func (s *Store) SetActiveItem(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setActiveLocked(ctx, id)
}

func (s *Store) setActiveLocked(ctx context.Context, id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		slog.WarnContext(ctx, "navigation item not found", "item_id", id)
		return false
	}
	if s.items[i].Disabled {
		slog.WarnContext(ctx, "navigation item is disabled", "item_id", id)
		return false
	}
	s.activate(id)
	s.bus.PublishNew(eventbus.TypeNavigationMove, id, nil)
	return true
}

// ToggleSidebar flips the collapsed flag and returns the new value.
func (s *Store) ToggleSidebar() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collapsed = !s.collapsed
	return s.collapsed
}

func (s *Store) SetSidebarCollapsed(collapsed bool) {
	s.mu.Lock()
	s.collapsed = collapsed
	s.mu.Unlock()
}

func (s *Store) SidebarCollapsed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collapsed
}

// AddNavigationItem appends item as inactive. Duplicate or empty ids fail.
func (s *Store) AddNavigationItem(ctx context.Context, item Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" || s.indexOf(item.ID) >= 0 {
		slog.WarnContext(ctx, "navigation item already exists", "item_id", item.ID)
		return false
	}
	item.Active = false
	s.items = append(s.items, &item)
	return true
}

// RemoveNavigationItem fails for the default entry and unknown ids. Removing
// the active entry makes the default entry active.
func (s *Store) RemoveNavigationItem(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == DefaultItemID {
		slog.WarnContext(ctx, "default navigation item cannot be removed")
		return false
	}
	i := s.indexOf(id)
	if i < 0 {
		slog.WarnContext(ctx, "navigation item not found", "item_id", id)
		return false
	}
	wasActive := s.items[i].Active
	s.items = slices.Delete(s.items, i, i+1)
	if wasActive {
		s.activate(DefaultItemID)
		s.bus.PublishNew(eventbus.TypeNavigationMove, DefaultItemID, nil)
	}
	return true
}

// UpdateNavigationItem merges patch into the entry. The default entry cannot
// be disabled; disabling the active entry makes the default entry active.
func (s *Store) UpdateNavigationItem(ctx context.Context, id string, patch ItemPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		slog.WarnContext(ctx, "navigation item not found", "item_id", id)
		return false
	}
	disabling := patch.Disabled != nil && *patch.Disabled
	if disabling && id == DefaultItemID {
		slog.WarnContext(ctx, "default navigation item cannot be disabled")
		return false
	}
	it := s.items[i]
	patch.apply(it)
	switch {
	case disabling && it.Active:
		s.activate(DefaultItemID)
		s.bus.PublishNew(eventbus.TypeNavigationMove, DefaultItemID, nil)
	case patch.Active != nil && *patch.Active:
		s.setActiveLocked(ctx, id)
	}
	return true
}

func (s *Store) enabledLocked() []*Item {
	var out []*Item
	for _, it := range s.items {
		if !it.Disabled {
			out = append(out, it)
		}
	}
	return out
}

// neighbor walks the enabled entries circularly from the active one. When
// the active entry is not enabled, forward starts at the first entry and
// backward at the last.
func (s *Store) neighbor(step int) (Item, bool) {
	enabled := s.enabledLocked()
	if len(enabled) == 0 {
		return Item{}, false
	}
	cur := slices.IndexFunc(enabled, func(it *Item) bool { return it.Active })
	var next int
	switch {
	case cur < 0 && step > 0:
		next = 0
	case cur < 0:
		next = len(enabled) - 1
	default:
		next = ((cur+step)%len(enabled) + len(enabled)) % len(enabled)
	}
	return *enabled[next], true
}

func (s *Store) NextItem() (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.neighbor(1)
}

func (s *Store) PreviousItem() (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.neighbor(-1)
}

func (s *Store) NavigateNext(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.neighbor(1)
	return ok && s.setActiveLocked(ctx, it.ID)
}

func (s *Store) NavigatePrevious(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.neighbor(-1)
	return ok && s.setActiveLocked(ctx, it.ID)
}

// Reset restores the single default entry, active, with the sidebar
// expanded. Seeded items are not restored.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initial = nil
	s.items = nil
	s.resetLocked()
}

func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = *it
	}
	return out
}

func (s *Store) ActiveItem() (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.Active {
			return *it, true
		}
	}
	return Item{}, false
}
