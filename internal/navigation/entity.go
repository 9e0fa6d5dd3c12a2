package navigation

type Item struct {
	ID       string `json:"id" yaml:"id"`
	Label    string `json:"label" yaml:"label"`
	Icon     string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Href     string `json:"href,omitempty" yaml:"href,omitempty"`
	Active   bool   `json:"active" yaml:"active,omitempty"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// ItemPatch is a partial update; nil fields are left untouched. Active only
// has an effect when true.
type ItemPatch struct {
	Label    *string `json:"label,omitempty"`
	Icon     *string `json:"icon,omitempty"`
	Href     *string `json:"href,omitempty"`
	Disabled *bool   `json:"disabled,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

func (p ItemPatch) apply(it *Item) {
	if p.Label != nil {
		it.Label = *p.Label
	}
	if p.Icon != nil {
		it.Icon = *p.Icon
	}
	if p.Href != nil {
		it.Href = *p.Href
	}
	if p.Disabled != nil {
		it.Disabled = *p.Disabled
	}
}

const (
	DefaultItemID    = "kanban"
	DefaultItemLabel = "Kanban Board"
)

func defaultItem() *Item {
	return &Item{ID: DefaultItemID, Label: DefaultItemLabel, Icon: "columns", Href: "/", Active: true}
}
