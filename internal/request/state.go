package request

import (
	"fmt"

	"netvoya-bot/pkg/api"
)

// Wizard steps, forward-linear with unguarded backward navigation.
const (
	StepQuantity     = "quantity"
	StepSelection    = "selection"
	StepDistribution = "distribution"
	StepSubmitted    = "submitted"
)

// MinOrderTokens is the default floor for a viable inventory request.
// Requests below it block advancement from the quantity step but are
// never clamped.
const MinOrderTokens = 10

// State is one partner's in-progress inventory request. It owns the
// selection/distribution coupling: every selected package has exactly
// one quantity entry, and deselecting purges it. The struct is
// JSON-serializable so it can live in the per-chat session store.
type State struct {
	Step        string         `json:"step"`
	TotalTokens int            `json:"total_tokens"`
	Selected    []api.Package  `json:"selected,omitempty"`
	Quantities  map[string]int `json:"quantities,omitempty"`

	// SearchQuery is the live filter applied on the selection step.
	SearchQuery string `json:"search_query,omitempty"`
	// SubmittedID is set once the backend acknowledges the request.
	SubmittedID string `json:"submitted_id,omitempty"`
}

// New returns a fresh wizard session at the quantity step.
func New() *State {
	return &State{
		Step:       StepQuantity,
		Quantities: map[string]int{},
	}
}

// SetTotalTokens records the requested total. Values below min are
// stored but reported invalid so the caller can warn without clamping.
func (s *State) SetTotalTokens(total, min int) error {
	if total < 0 {
		total = 0
	}
	s.TotalTokens = total
	if total < min {
		return fmt.Errorf("minimum order is %d tokens", min)
	}
	return nil
}

// IsSelected reports whether the package id is part of the selection.
func (s *State) IsSelected(id string) bool {
	_, ok := s.Quantities[id]
	return ok
}

// Select adds a package to the selection with a zero quantity.
// Selecting an already-selected package is a no-op.
func (s *State) Select(pkg api.Package) {
	if s.Quantities == nil {
		s.Quantities = map[string]int{}
	}
	if s.IsSelected(pkg.ID) {
		return
	}
	s.Selected = append(s.Selected, pkg)
	s.Quantities[pkg.ID] = 0
}

// Deselect removes a package and purges its quantity entry. Any
// quantity already assigned to it is intentionally lost.
func (s *State) Deselect(id string) {
	if !s.IsSelected(id) {
		return
	}
	delete(s.Quantities, id)
	for i, p := range s.Selected {
		if p.ID == id {
			s.Selected = append(s.Selected[:i], s.Selected[i+1:]...)
			break
		}
	}
}

// Toggle flips a package in or out of the selection.
func (s *State) Toggle(pkg api.Package) {
	if s.IsSelected(pkg.ID) {
		s.Deselect(pkg.ID)
		return
	}
	s.Select(pkg)
}

// SetQuantity assigns tokens to a selected package. Negative input is
// floored to zero; there is no per-package cap. Ids outside the
// selection are ignored.
func (s *State) SetQuantity(id string, qty int) {
	if !s.IsSelected(id) {
		return
	}
	if qty < 0 {
		qty = 0
	}
	s.Quantities[id] = qty
}

// Assigned is the total quantity distributed so far.
func (s *State) Assigned() int {
	sum := 0
	for _, q := range s.Quantities {
		sum += q
	}
	return sum
}

// Remaining is the gap between the requested total and the assigned
// quantities. Negative means the partner over-assigned; that is shown
// to them but only rejected at the submit gate.
func (s *State) Remaining() int {
	return s.TotalTokens - s.Assigned()
}

// CanAdvanceSelection guards the Selection → Distribution transition.
func (s *State) CanAdvanceSelection() bool {
	return len(s.Selected) > 0
}

// CanSubmit guards the terminal submit action: quantities must add up
// to the requested total exactly.
func (s *State) CanSubmit() bool {
	return s.TotalTokens > 0 && s.Remaining() == 0
}

// Advance moves one step forward when the current step's guard allows
// it. min is the token floor applied on the quantity step.
func (s *State) Advance(min int) error {
	switch s.Step {
	case StepQuantity:
		if s.TotalTokens < min {
			return fmt.Errorf("minimum order is %d tokens", min)
		}
		s.Step = StepSelection
	case StepSelection:
		if !s.CanAdvanceSelection() {
			return fmt.Errorf("select at least one package")
		}
		s.Step = StepDistribution
	case StepDistribution:
		if !s.CanSubmit() {
			return fmt.Errorf("assigned quantities must add up to %d tokens", s.TotalTokens)
		}
		s.Step = StepSubmitted
	default:
		return fmt.Errorf("cannot advance from step %q", s.Step)
	}
	return nil
}

// Back moves one step backward. Backward navigation is unguarded and
// never discards entered data.
func (s *State) Back() {
	switch s.Step {
	case StepSelection:
		s.Step = StepQuantity
	case StepDistribution:
		s.Step = StepSelection
	}
}

// Reset returns the session to a fresh quantity step.
func (s *State) Reset() {
	*s = *New()
}
