package domain

// MaxComparisonItems is the hard cap of products compared side by side per category
const MaxComparisonItems = 3

// ComparisonSelection is the comparison state of one session.
// ActiveStale marks an active category that was emptied by removals and
// could not be reassigned because no other category had items.
// LastToggle is set only while the latest mutation was a toggle.
type ComparisonSelection struct {
	Lists       map[Category][]string `json:"lists"`
	Active      Category              `json:"active,omitempty"`
	ActiveStale bool                  `json:"activeStale,omitempty"`
	LastToggle  *ToggleUndo           `json:"lastToggle,omitempty"`
}

// ToggleUndo is the state a toggle replaced. Toggling the same product again
// restores it, list position and active category included.
type ToggleUndo struct {
	Category    Category `json:"category"`
	ProductID   string   `json:"productId"`
	Index       int      `json:"index"` // -1 when the product was not selected
	Active      Category `json:"active,omitempty"`
	ActiveStale bool     `json:"activeStale,omitempty"`
}

// NewComparisonSelection returns an empty selection
func NewComparisonSelection() *ComparisonSelection {
	return &ComparisonSelection{Lists: make(map[Category][]string)}
}

// Count returns the number of products selected in a category
func (s *ComparisonSelection) Count(c Category) int {
	if s == nil {
		return 0
	}
	return len(s.Lists[c])
}

// Contains reports whether productID is selected in category c
func (s *ComparisonSelection) Contains(c Category, productID string) bool {
	return s.IndexOf(c, productID) >= 0
}

// IndexOf returns the position of productID in category c, or -1
func (s *ComparisonSelection) IndexOf(c Category, productID string) int {
	if s == nil {
		return -1
	}
	for i, id := range s.Lists[c] {
		if id == productID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy
func (s *ComparisonSelection) Clone() *ComparisonSelection {
	out := NewComparisonSelection()
	if s == nil {
		return out
	}
	for c, ids := range s.Lists {
		if len(ids) == 0 {
			continue
		}
		out.Lists[c] = append([]string(nil), ids...)
	}
	out.Active = s.Active
	out.ActiveStale = s.ActiveStale
	if s.LastToggle != nil {
		undo := *s.LastToggle
		out.LastToggle = &undo
	}
	return out
}

// Valid reports whether every list is within the cap and free of duplicates
func (s *ComparisonSelection) Valid() bool {
	if s == nil {
		return true
	}
	for _, ids := range s.Lists {
		if len(ids) > MaxComparisonItems {
			return false
		}
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				return false
			}
			seen[id] = true
		}
	}
	return true
}

// ComparisonAction is what a mutation did to the selection
type ComparisonAction string

const (
	ComparisonAdded     ComparisonAction = "added"
	ComparisonRemoved   ComparisonAction = "removed"
	ComparisonUnchanged ComparisonAction = "unchanged"
)

// CategorySelection is one category entry of a snapshot
type CategorySelection struct {
	Category   Category `json:"category"`
	ProductIDs []string `json:"productIds"`
	Full       bool     `json:"full"`
}

// ComparisonSnapshot is the read model rendered by the UI
type ComparisonSnapshot struct {
	SessionID  string              `json:"sessionId"`
	Active     Category            `json:"activeCategory,omitempty"`
	Categories []CategorySelection `json:"categories"`
	Action     ComparisonAction    `json:"action,omitempty"`
	Message    string              `json:"message,omitempty"`
}

// Snapshot renders the non-empty categories in enumeration order
func (s *ComparisonSelection) Snapshot(sessionID string) ComparisonSnapshot {
	snap := ComparisonSnapshot{SessionID: sessionID, Categories: []CategorySelection{}}
	if s == nil {
		return snap
	}
	snap.Active = s.Active
	for _, c := range Categories {
		ids := s.Lists[c]
		if len(ids) == 0 {
			continue
		}
		snap.Categories = append(snap.Categories, CategorySelection{
			Category:   c,
			ProductIDs: append([]string(nil), ids...),
			Full:       len(ids) >= MaxComparisonItems,
		})
	}
	return snap
}
