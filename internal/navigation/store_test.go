package navigation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/eventbus"
)

func seeded() *Store {
	return NewStore(WithItems([]Item{
		{ID: "kanban", Label: "Kanban Board"},
		{ID: "reports", Label: "Reports"},
		{ID: "settings", Label: "Settings", Disabled: true},
		{ID: "help", Label: "Help"},
	}))
}

func activeID(t *testing.T, s *Store) string {
	t.Helper()
	it, ok := s.ActiveItem()
	require.True(t, ok)
	return it.ID
}

func TestNewStore_Default(t *testing.T) {
	s := NewStore()
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, DefaultItemID, items[0].ID)
	assert.Equal(t, DefaultItemLabel, items[0].Label)
	assert.True(t, items[0].Active)
	assert.False(t, s.SidebarCollapsed())
}

func TestNewStore_SeedAddsDefaultAndKeepsSingleActive(t *testing.T) {
	s := NewStore(WithItems([]Item{
		{ID: "reports", Label: "Reports", Active: true},
		{ID: "help", Label: "Help", Active: true},
		{ID: "reports", Label: "Duplicate"},
	}))
	items := s.Items()
	require.Len(t, items, 3)
	assert.Equal(t, DefaultItemID, items[0].ID)
	assert.Equal(t, "reports", activeID(t, s))

	active := 0
	for _, it := range items {
		if it.Active {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestSetActiveItem(t *testing.T) {
	ctx := context.Background()
	s := seeded()

	require.True(t, s.SetActiveItem(ctx, "reports"))
	assert.Equal(t, "reports", activeID(t, s))

	assert.False(t, s.SetActiveItem(ctx, "settings"))
	assert.False(t, s.SetActiveItem(ctx, "missing"))
	assert.Equal(t, "reports", activeID(t, s))
}

func TestSidebar(t *testing.T) {
	s := NewStore()
	assert.True(t, s.ToggleSidebar())
	assert.True(t, s.SidebarCollapsed())
	assert.False(t, s.ToggleSidebar())
	s.SetSidebarCollapsed(true)
	assert.True(t, s.SidebarCollapsed())

	assert.True(t, NewStore(WithSidebarCollapsed(true)).SidebarCollapsed())
}

func TestAddNavigationItem(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.True(t, s.AddNavigationItem(ctx, Item{ID: "reports", Label: "Reports", Active: true}))
	items := s.Items()
	require.Len(t, items, 2)
	assert.False(t, items[1].Active)
	assert.Equal(t, DefaultItemID, activeID(t, s))

	assert.False(t, s.AddNavigationItem(ctx, Item{ID: "reports"}))
	assert.False(t, s.AddNavigationItem(ctx, Item{ID: DefaultItemID}))
	assert.False(t, s.AddNavigationItem(ctx, Item{}))
	assert.Len(t, s.Items(), 2)
}

func TestRemoveNavigationItem(t *testing.T) {
	ctx := context.Background()
	s := seeded()

	assert.False(t, s.RemoveNavigationItem(ctx, DefaultItemID))
	assert.False(t, s.RemoveNavigationItem(ctx, "missing"))

	require.True(t, s.SetActiveItem(ctx, "help"))
	require.True(t, s.RemoveNavigationItem(ctx, "help"))
	assert.Equal(t, DefaultItemID, activeID(t, s))

	require.True(t, s.SetActiveItem(ctx, "reports"))
	require.True(t, s.RemoveNavigationItem(ctx, "settings"))
	assert.Equal(t, "reports", activeID(t, s))
}

func TestRemoveDefaultAlwaysFails(t *testing.T) {
	ctx := context.Background()
	for _, s := range []*Store{NewStore(), seeded()} {
		s.SetActiveItem(ctx, "reports")
		assert.False(t, s.RemoveNavigationItem(ctx, DefaultItemID))
		s.Reset()
		assert.False(t, s.RemoveNavigationItem(ctx, DefaultItemID))
	}
}

func TestUpdateNavigationItem(t *testing.T) {
	ctx := context.Background()
	s := seeded()

	label := "Insights"
	require.True(t, s.UpdateNavigationItem(ctx, "reports", ItemPatch{Label: &label}))
	assert.Equal(t, DefaultItemID, activeID(t, s))

	yes := true
	require.True(t, s.UpdateNavigationItem(ctx, "reports", ItemPatch{Active: &yes}))
	it := activeID(t, s)
	assert.Equal(t, "reports", it)
	assert.Equal(t, "Insights", s.Items()[1].Label)

	// Activating a disabled entry through an update merges but does not activate.
	icon := "gear"
	require.True(t, s.UpdateNavigationItem(ctx, "settings", ItemPatch{Icon: &icon, Active: &yes}))
	assert.Equal(t, "reports", activeID(t, s))
	assert.Equal(t, "gear", s.Items()[2].Icon)

	assert.False(t, s.UpdateNavigationItem(ctx, "missing", ItemPatch{Label: &label}))
}

func TestTraversal(t *testing.T) {
	ctx := context.Background()
	s := seeded()

	next, ok := s.NextItem()
	require.True(t, ok)
	assert.Equal(t, "reports", next.ID)

	prev, ok := s.PreviousItem()
	require.True(t, ok)
	assert.Equal(t, "help", prev.ID)

	// Disabled entries are skipped.
	require.True(t, s.NavigateNext(ctx))
	require.True(t, s.NavigateNext(ctx))
	assert.Equal(t, "help", activeID(t, s))
	require.True(t, s.NavigateNext(ctx))
	assert.Equal(t, DefaultItemID, activeID(t, s))

	require.True(t, s.NavigatePrevious(ctx))
	assert.Equal(t, "help", activeID(t, s))
}

func TestTraversal_Singleton(t *testing.T) {
	s := NewStore()
	next, ok := s.NextItem()
	require.True(t, ok)
	prev, ok := s.PreviousItem()
	require.True(t, ok)
	assert.Equal(t, DefaultItemID, next.ID)
	assert.Equal(t, DefaultItemID, prev.ID)
}

func TestTraversal_SingleEnabledAmongDisabled(t *testing.T) {
	ctx := context.Background()
	s := NewStore(WithItems([]Item{
		{ID: "a", Label: "A", Disabled: true},
		{ID: "kanban", Label: "Kanban Board"},
		{ID: "b", Label: "B", Disabled: true},
	}))
	next, _ := s.NextItem()
	prev, _ := s.PreviousItem()
	assert.Equal(t, DefaultItemID, next.ID)
	assert.Equal(t, DefaultItemID, prev.ID)
	assert.True(t, s.NavigateNext(ctx))
}

func TestUpdateNavigationItem_DisableActiveFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	s := seeded()
	require.True(t, s.SetActiveItem(ctx, "reports"))
	yes := true
	require.True(t, s.UpdateNavigationItem(ctx, "reports", ItemPatch{Disabled: &yes}))
	assert.Equal(t, DefaultItemID, activeID(t, s))

	next, ok := s.NextItem()
	require.True(t, ok)
	assert.Equal(t, "help", next.ID)
	prev, ok := s.PreviousItem()
	require.True(t, ok)
	assert.Equal(t, "help", prev.ID)
}

func TestUpdateNavigationItem_DefaultCannotBeDisabled(t *testing.T) {
	ctx := context.Background()
	s := seeded()
	require.True(t, s.SetActiveItem(ctx, "reports"))

	yes := true
	label := "Board"
	assert.False(t, s.UpdateNavigationItem(ctx, DefaultItemID, ItemPatch{Disabled: &yes, Label: &label}))
	assert.False(t, s.Items()[0].Disabled)
	assert.Equal(t, DefaultItemLabel, s.Items()[0].Label)

	require.True(t, s.RemoveNavigationItem(ctx, "reports"))
	active, ok := s.ActiveItem()
	require.True(t, ok)
	assert.Equal(t, DefaultItemID, active.ID)
	assert.False(t, active.Disabled)

	next, ok := s.NextItem()
	require.True(t, ok)
	assert.Equal(t, "help", next.ID)
}

func TestTraversal_ActiveDisabledAtSeed(t *testing.T) {
	s := NewStore(WithItems([]Item{
		{ID: "a", Label: "A"},
		{ID: "b", Label: "B", Active: true, Disabled: true},
		{ID: "c", Label: "C"},
	}))
	assert.Equal(t, DefaultItemID, activeID(t, s))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := seeded()
	s.SetActiveItem(ctx, "reports")
	s.ToggleSidebar()

	s.Reset()
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, DefaultItemID, items[0].ID)
	assert.True(t, items[0].Active)
	assert.False(t, items[0].Disabled)
	assert.False(t, s.SidebarCollapsed())
}

func TestSetActivePublishesEvent(t *testing.T) {
	bus := eventbus.New()
	_, ch := bus.Subscribe(4)
	s := NewStore(WithEventBus(bus), WithItems([]Item{{ID: "reports", Label: "Reports"}}))

	require.True(t, s.SetActiveItem(context.Background(), "reports"))
	ev := <-ch
	assert.Equal(t, eventbus.TypeNavigationMove, ev.Type)
	assert.Equal(t, "reports", ev.ResourceID)
}
