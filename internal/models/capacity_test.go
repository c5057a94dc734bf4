package models

import "testing"

func TestPercent(t *testing.T) {
	tests := []struct {
		accepted, total int64
		want            int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{3, 10, 30},
		{12, 50, 24},
		{1, 3, 33},
		{2, 3, 67},
		{50, 50, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.accepted, tt.total); got != tt.want {
			t.Errorf("Percent(%v, %v) = %d, want %d", tt.accepted, tt.total, got, tt.want)
		}
	}
}

func TestTripOccupancy(t *testing.T) {
	trip := Trip{CapacityPackages: 10, CapacityWeight: 50 * Kilogram, AcceptedPackages: 3, AcceptedWeight: 12 * Kilogram}
	occ := trip.Occupancy()
	if occ.PackagesPercent != 30 || occ.WeightPercent != 24 {
		t.Errorf("occupancy = %+v, want 30%%/24%%", occ)
	}
	if trip.RemainingPackages() != 7 || trip.RemainingWeight() != 38*Kilogram {
		t.Errorf("remaining = %d/%v", trip.RemainingPackages(), trip.RemainingWeight())
	}
}

func TestLedgerFits(t *testing.T) {
	e := CapacityLedgerEntry{TotalCapacityPackages: 10, TotalCapacityWeight: 50 * Kilogram, AcceptedPackages: 9, AcceptedWeight: 45 * Kilogram}
	if !e.Fits(Load{Packages: 1, Weight: 5 * Kilogram}) {
		t.Error("exact fit rejected")
	}
	if e.Fits(Load{Packages: 2, Weight: Kilogram}) {
		t.Error("package overflow accepted")
	}
	if e.Fits(Load{Packages: 1, Weight: 5500 * Gram}) {
		t.Error("weight overflow accepted")
	}

	// 1.1 kg + 2.2 kg into 3.3 kg must fit exactly.
	tight := CapacityLedgerEntry{TotalCapacityPackages: 5, TotalCapacityWeight: 3300 * Gram, AcceptedPackages: 1, AcceptedWeight: 1100 * Gram}
	if !tight.Fits(Load{Packages: 1, Weight: 2200 * Gram}) {
		t.Error("decimal exact fit rejected")
	}
}

func TestDriverRouteProfileRunsOn(t *testing.T) {
	p := DriverRouteProfile{DaysOfWeek: []int64{2, 4, 6}}
	for day, want := range map[int]bool{1: false, 2: true, 3: false, 4: true, 6: true, 7: false} {
		if got := p.RunsOn(day); got != want {
			t.Errorf("RunsOn(%d) = %v, want %v", day, got, want)
		}
	}
}
