package analytics

import (
	"math"
	"testing"
)

func TestComputeSharpeAndDrawdownRequiresAtLeastTwoValues(t *testing.T) {
	sharpe, dd := ComputeSharpeAndDrawdown([]float64{10000})
	if sharpe != nil || dd != nil {
		t.Fatalf("expected nil, nil for a single value, got %v, %v", sharpe, dd)
	}
}

func TestComputeSharpeAndDrawdownZeroStdDevIsNilSharpe(t *testing.T) {
	sharpe, dd := ComputeSharpeAndDrawdown([]float64{10000, 10000, 10000})
	if sharpe != nil {
		t.Fatalf("expected nil sharpe for constant series, got %v", *sharpe)
	}
	if dd == nil || *dd != 0 {
		t.Fatalf("expected zero drawdown for constant series, got %v", dd)
	}
}

func TestComputeSharpeAndDrawdownScenarioS6(t *testing.T) {
	values := []float64{10000, 10100, 10050, 10200, 10150}
	sharpe, dd := ComputeSharpeAndDrawdown(values)
	if sharpe == nil {
		t.Fatal("expected non-nil sharpe")
	}
	if dd == nil {
		t.Fatal("expected non-nil max drawdown")
	}
	if math.Abs(*dd-(-0.00495)) > 1e-5 {
		t.Errorf("expected max drawdown -0.00495, got %v", *dd)
	}
}
