package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func earnAt(id, points int64, at time.Time) Transaction {
	return Transaction{ID: id, Kind: KindEarn, Points: points, OccurredAt: at}
}

func TestAllocateWalksOldestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	earns := []Transaction{
		earnAt(3, 10, base.Add(2*time.Hour)),
		earnAt(1, 4, base),
		earnAt(2, 6, base.Add(time.Hour)),
	}
	consumed := map[int64]int64{1: 4, 2: 1}

	got, err := allocate(earns, consumed, 8)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	want := []allocation{{EarnID: 2, Points: 5}, {EarnID: 3, Points: 3}}
	if len(got) != len(want) {
		t.Fatalf("expected %d allocations, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("allocation %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestAllocateRejectsShortfallWithoutPartialResult(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	earns := []Transaction{earnAt(1, 5, base), earnAt(2, 5, base)}

	got, err := allocate(earns, map[int64]int64{1: 2}, 9)
	if !errors.Is(err, ErrPointsNotEnough) {
		t.Fatalf("expected ErrPointsNotEnough, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected no allocations, got %+v", got)
	}
}

func TestAllocateDetectsOverdrawnEarn(t *testing.T) {
	earns := []Transaction{earnAt(1, 5, time.Now())}

	if _, err := allocate(earns, map[int64]int64{1: 6}, 1); !errors.Is(err, ErrConsistency) {
		t.Fatalf("expected ErrConsistency, got %v", err)
	}
}

func TestAllocateDoesNotReorderInput(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	earns := []Transaction{earnAt(2, 1, base.Add(time.Hour)), earnAt(1, 1, base)}

	if _, err := allocate(earns, nil, 1); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if earns[0].ID != 2 {
		t.Fatal("allocate must not sort the caller's slice")
	}
}

func TestSpendTransactionsRoundValueToCents(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pair := Pair{CustomerID: 1, RestaurantID: 2}

	rows := spendTransactions(pair, []allocation{{EarnID: 9, Points: 10}}, decimal.NewFromInt(3), now)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.Points != -10 || row.Kind != KindSpend || *row.SourceEarnID != 9 {
		t.Fatalf("unexpected row: %+v", row)
	}
	if !row.MonetaryValue.Equal(decimal.RequireFromString("3.33")) {
		t.Fatalf("expected 3.33, got %s", row.MonetaryValue)
	}
}

func TestEarnedFloorsPoints(t *testing.T) {
	tests := []struct {
		amount, rate string
		want         int64
	}{
		{"10", "1", 10},
		{"12.99", "1", 12},
		{"100", "0.15", 15},
		{"3", "0.1", 0},
	}
	for _, tt := range tests {
		got := Earned(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.rate))
		if got != tt.want {
			t.Errorf("Earned(%s, %s) = %d, want %d", tt.amount, tt.rate, got, tt.want)
		}
	}
}
