package request

import (
	"encoding/json"
	"testing"

	"netvoya-bot/pkg/api"
)

func pkg(id, name, region string, retail float64) api.Package {
	return api.Package{ID: id, Name: name, Region: region, RetailPrice: retail, IsLive: true}
}

func TestSelectIsIdempotent(t *testing.T) {
	s := New()
	p := pkg("p1", "Europe 5GB", "Europe", 10)

	s.Select(p)
	s.SetQuantity("p1", 5)
	s.Select(p)

	if len(s.Selected) != 1 {
		t.Fatalf("got %d selected, want 1", len(s.Selected))
	}
	if s.Quantities["p1"] != 5 {
		t.Errorf("re-select reset quantity: got %d, want 5", s.Quantities["p1"])
	}
}

func TestDeselectPurgesQuantity(t *testing.T) {
	s := New()
	p := pkg("p1", "Europe 5GB", "Europe", 10)

	s.Select(p)
	s.SetQuantity("p1", 7)
	s.Deselect("p1")

	if _, ok := s.Quantities["p1"]; ok {
		t.Error("quantity entry survived deselect")
	}
	if len(s.Selected) != 0 {
		t.Error("package survived deselect")
	}

	// Reselecting starts from zero, not the old 7.
	s.Select(p)
	if s.Quantities["p1"] != 0 {
		t.Errorf("reselect restored stale quantity %d", s.Quantities["p1"])
	}
}

func TestSetQuantityFloorsNegatives(t *testing.T) {
	s := New()
	s.Select(pkg("p1", "Europe 5GB", "Europe", 10))

	s.SetQuantity("p1", -3)
	if s.Quantities["p1"] != 0 {
		t.Errorf("got %d, want 0", s.Quantities["p1"])
	}

	// Unknown ids are ignored, not added.
	s.SetQuantity("ghost", 4)
	if _, ok := s.Quantities["ghost"]; ok {
		t.Error("quantity recorded for unselected package")
	}
}

func TestRemainingMayGoNegative(t *testing.T) {
	s := New()
	s.TotalTokens = 50
	s.Select(pkg("p1", "Europe 5GB", "Europe", 10))
	s.SetQuantity("p1", 70)

	if got := s.Remaining(); got != -20 {
		t.Errorf("Remaining() = %d, want -20", got)
	}
	if s.CanSubmit() {
		t.Error("over-assigned request must not pass the submit gate")
	}
}

func TestSubmitGate(t *testing.T) {
	s := New()
	s.TotalTokens = 50
	s.Step = StepDistribution
	s.Select(pkg("p1", "Europe 5GB", "Europe", 10))
	s.Select(pkg("p2", "Asia 10GB", "Asia", 20))

	s.SetQuantity("p1", 20)
	s.SetQuantity("p2", 20)
	if s.CanSubmit() {
		t.Error("submit enabled with 40 of 50 tokens assigned")
	}
	if err := s.Advance(MinOrderTokens); err == nil {
		t.Error("Advance from distribution succeeded despite unmet gate")
	}

	s.SetQuantity("p2", 30)
	if !s.CanSubmit() {
		t.Error("submit disabled with exact distribution")
	}
	if err := s.Advance(MinOrderTokens); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s.Step != StepSubmitted {
		t.Errorf("got step %q, want %q", s.Step, StepSubmitted)
	}
}

func TestQuantityStepGuard(t *testing.T) {
	s := New()

	if err := s.SetTotalTokens(9, MinOrderTokens); err == nil {
		t.Error("expected warning for total below minimum")
	}
	if s.TotalTokens != 9 {
		t.Errorf("total clamped to %d; low totals must be kept as entered", s.TotalTokens)
	}
	if err := s.Advance(MinOrderTokens); err == nil {
		t.Error("advanced from quantity step below minimum")
	}

	if err := s.SetTotalTokens(10, MinOrderTokens); err != nil {
		t.Fatalf("SetTotalTokens(10) = %v", err)
	}
	if err := s.Advance(MinOrderTokens); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s.Step != StepSelection {
		t.Errorf("got step %q, want %q", s.Step, StepSelection)
	}
}

func TestBackwardNavigationPreservesState(t *testing.T) {
	s := New()
	s.SetTotalTokens(100, MinOrderTokens)
	s.Advance(MinOrderTokens)

	s.Select(pkg("p1", "Europe 5GB", "Europe", 10))
	s.Select(pkg("p2", "Asia 10GB", "Asia", 20))
	s.Select(pkg("p3", "Global Roam", "Worldwide", 30))

	s.Back()
	if s.Step != StepQuantity {
		t.Fatalf("got step %q, want %q", s.Step, StepQuantity)
	}

	// Change the total and go forward again: the selection survives.
	s.SetTotalTokens(300, MinOrderTokens)
	if err := s.Advance(MinOrderTokens); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if len(s.Selected) != 3 {
		t.Errorf("selection lost on back-navigation: %d packages left", len(s.Selected))
	}
}

func TestSelectionStepGuard(t *testing.T) {
	s := New()
	s.SetTotalTokens(50, MinOrderTokens)
	s.Advance(MinOrderTokens)

	if err := s.Advance(MinOrderTokens); err == nil {
		t.Error("advanced from selection with nothing selected")
	}

	s.Select(pkg("p1", "Europe 5GB", "Europe", 10))
	if err := s.Advance(MinOrderTokens); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if s.Step != StepDistribution {
		t.Errorf("got step %q, want %q", s.Step, StepDistribution)
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := New()
	s.SetTotalTokens(100, MinOrderTokens)
	s.Select(pkg("p1", "Europe 5GB", "Europe", 10))
	s.SetQuantity("p1", 100)
	s.Step = StepSubmitted
	s.SubmittedID = "req-1"

	s.Reset()

	if s.Step != StepQuantity || s.TotalTokens != 0 || len(s.Selected) != 0 ||
		len(s.Quantities) != 0 || s.SubmittedID != "" {
		t.Errorf("reset left residue: %+v", s)
	}
}

func TestStateSurvivesJSONRoundTrip(t *testing.T) {
	s := New()
	s.SetTotalTokens(100, MinOrderTokens)
	s.Advance(MinOrderTokens)
	s.Select(pkg("p1", "Europe 5GB", "Europe", 10))
	s.SetQuantity("p1", 40)

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var restored State
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.Step != StepSelection || restored.Quantities["p1"] != 40 {
		t.Errorf("state mangled by session round trip: %+v", restored)
	}
	if restored.Remaining() != 60 {
		t.Errorf("Remaining() = %d after round trip, want 60", restored.Remaining())
	}
}
