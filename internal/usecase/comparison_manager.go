package usecase

import (
	"fmt"
	"slices"

	"github.com/vendorlens/backend/internal/domain"
)

// ComparisonManager applies comparison transitions to a selection.
// Every method is a synchronous state transition: the caller owns the selection
// and is responsible for serializing access to it.
type ComparisonManager struct{}

// NewComparisonManager creates a comparison manager
func NewComparisonManager() *ComparisonManager {
	return &ComparisonManager{}
}

// Add appends productID to the category list. Adding a product that is already
// selected is a no-op; adding a 4th distinct product fails with ErrComparisonFull
// and leaves the selection untouched.
func (m *ComparisonManager) Add(sel *domain.ComparisonSelection, category domain.Category, productID string) (domain.ComparisonAction, error) {
	if err := validateComparisonInput(sel, category, productID); err != nil {
		return domain.ComparisonUnchanged, err
	}
	if sel.Contains(category, productID) {
		return domain.ComparisonUnchanged, nil
	}
	if sel.Count(category) >= domain.MaxComparisonItems {
		return domain.ComparisonUnchanged, fmt.Errorf("%w: %s already has %d products", domain.ErrComparisonFull, category, domain.MaxComparisonItems)
	}

	sel.Lists[category] = append(sel.Lists[category], productID)
	sel.LastToggle = nil
	if sel.Active == "" || sel.Active == category {
		sel.Active = category
		sel.ActiveStale = false
	}
	return domain.ComparisonAdded, nil
}

// Remove drops productID from the category list; removing an absent product is a no-op.
// Emptying the active category reassigns it once.
func (m *ComparisonManager) Remove(sel *domain.ComparisonSelection, category domain.Category, productID string) (domain.ComparisonAction, error) {
	if err := validateComparisonInput(sel, category, productID); err != nil {
		return domain.ComparisonUnchanged, err
	}

	idx := sel.IndexOf(category, productID)
	if idx < 0 {
		return domain.ComparisonUnchanged, nil
	}

	remaining := slices.Delete(slices.Clone(sel.Lists[category]), idx, idx+1)
	setList(sel, category, remaining)
	sel.LastToggle = nil

	if category == sel.Active && len(remaining) == 0 {
		m.reassignActive(sel)
	}
	return domain.ComparisonRemoved, nil
}

// Toggle removes productID when selected and adds it otherwise. Toggling the
// product of the previous toggle again restores the selection that toggle replaced.
func (m *ComparisonManager) Toggle(sel *domain.ComparisonSelection, category domain.Category, productID string) (domain.ComparisonAction, error) {
	if err := validateComparisonInput(sel, category, productID); err != nil {
		return domain.ComparisonUnchanged, err
	}
	if u := sel.LastToggle; u != nil && u.Category == category && u.ProductID == productID {
		return m.undoToggle(sel, *u)
	}

	undo := &domain.ToggleUndo{
		Category:    category,
		ProductID:   productID,
		Index:       sel.IndexOf(category, productID),
		Active:      sel.Active,
		ActiveStale: sel.ActiveStale,
	}
	var (
		action domain.ComparisonAction
		err    error
	)
	if undo.Index >= 0 {
		action, err = m.Remove(sel, category, productID)
	} else {
		action, err = m.Add(sel, category, productID)
	}
	if err != nil {
		return action, err
	}
	sel.LastToggle = undo
	return action, nil
}

func (m *ComparisonManager) undoToggle(sel *domain.ComparisonSelection, u domain.ToggleUndo) (domain.ComparisonAction, error) {
	ids := slices.Clone(sel.Lists[u.Category])
	if i := slices.Index(ids, u.ProductID); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	}
	action := domain.ComparisonRemoved
	if u.Index >= 0 {
		if len(ids) >= domain.MaxComparisonItems {
			return domain.ComparisonUnchanged, fmt.Errorf("%w: %s already has %d products", domain.ErrComparisonFull, u.Category, domain.MaxComparisonItems)
		}
		ids = slices.Insert(ids, min(u.Index, len(ids)), u.ProductID)
		action = domain.ComparisonAdded
	}
	setList(sel, u.Category, ids)
	sel.Active = u.Active
	sel.ActiveStale = u.ActiveStale
	sel.LastToggle = nil
	return action, nil
}

// SetActiveCategory switches the active category. Switching to an empty category
// is honored as an explicit browse, unless the current active category was itself
// emptied by removals, in which case the first category with selections wins.
func (m *ComparisonManager) SetActiveCategory(sel *domain.ComparisonSelection, category domain.Category) error {
	if sel == nil {
		return fmt.Errorf("%w: nil selection", domain.ErrInvalidRequest)
	}
	if !category.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidCategory, category)
	}

	sel.LastToggle = nil
	staleActive := sel.Active != "" && sel.ActiveStale && sel.Count(sel.Active) == 0
	if sel.Count(category) == 0 && staleActive {
		if m.reassignActive(sel) {
			return nil
		}
	}

	sel.Active = category
	sel.ActiveStale = false
	return nil
}

// Clear empties one category, or every category when category is empty
func (m *ComparisonManager) Clear(sel *domain.ComparisonSelection, category domain.Category) error {
	if sel == nil {
		return fmt.Errorf("%w: nil selection", domain.ErrInvalidRequest)
	}
	sel.LastToggle = nil
	if category == "" {
		sel.Lists = make(map[domain.Category][]string)
		sel.Active = ""
		sel.ActiveStale = false
		return nil
	}
	if !category.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidCategory, category)
	}
	delete(sel.Lists, category)
	if category == sel.Active {
		m.reassignActive(sel)
	}
	return nil
}

// reassignActive points the active category at the first non-empty category in
// enumeration order. When there is none the active category stays and is marked
// stale. It runs once per transition and never calls back into the manager.
func (m *ComparisonManager) reassignActive(sel *domain.ComparisonSelection) bool {
	for _, c := range domain.Categories {
		if sel.Count(c) > 0 {
			sel.Active = c
			sel.ActiveStale = false
			return true
		}
	}
	sel.ActiveStale = sel.Active != ""
	return false
}

func setList(sel *domain.ComparisonSelection, category domain.Category, ids []string) {
	if len(ids) == 0 {
		delete(sel.Lists, category)
		return
	}
	sel.Lists[category] = ids
}

func validateComparisonInput(sel *domain.ComparisonSelection, category domain.Category, productID string) error {
	if sel == nil {
		return fmt.Errorf("%w: nil selection", domain.ErrInvalidRequest)
	}
	if !category.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidCategory, category)
	}
	if productID == "" {
		return fmt.Errorf("%w: product id is required", domain.ErrInvalidRequest)
	}
	if sel.Lists == nil {
		sel.Lists = make(map[domain.Category][]string)
	}
	return nil
}
