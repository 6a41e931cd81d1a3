package pricing

import (
	"math"
	"testing"
)

func TestMarginHealthy(t *testing.T) {
	m := Margin(4.5, 9.99)
	if !m.Defined || m.Loss {
		t.Fatalf("expected defined non-loss margin, got %+v", m)
	}
	if m.String() != "55.0%" {
		t.Errorf("got %q, want 55.0%%", m.String())
	}
}

func TestMarginZeroIsLoss(t *testing.T) {
	m := Margin(10, 10)
	if !m.Defined {
		t.Fatal("margin should be defined for non-zero retail")
	}
	if m.Percent != 0 {
		t.Errorf("got %v%%, want 0%%", m.Percent)
	}
	if !m.Loss {
		t.Error("retail == wholesale must be flagged as loss")
	}
}

func TestMarginNegative(t *testing.T) {
	m := Margin(12, 10)
	if !m.Loss {
		t.Error("retail below wholesale must be flagged as loss")
	}
	if m.String() != "-20.0%" {
		t.Errorf("got %q, want -20.0%%", m.String())
	}
}

func TestMarginZeroRetailSentinel(t *testing.T) {
	m := Margin(10, 0)
	if m.Defined {
		t.Error("zero retail must yield an undefined margin")
	}
	if !m.Loss {
		t.Error("zero retail must be flagged as loss")
	}
	if m.String() != "N/A" {
		t.Errorf("got %q, want N/A", m.String())
	}
	if math.IsNaN(m.Percent) || math.IsInf(m.Percent, 0) {
		t.Errorf("sentinel leaked NaN/Inf: %v", m.Percent)
	}
}

func TestMarginOneDecimal(t *testing.T) {
	// (9.99 - 3.33) / 9.99 * 100 = 66.666...
	m := Margin(3.33, 9.99)
	if m.String() != "66.7%" {
		t.Errorf("got %q, want 66.7%%", m.String())
	}
}
