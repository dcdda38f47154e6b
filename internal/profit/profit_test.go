package profit

import "testing"

func TestProfitWorkedExample(t *testing.T) {
	// 125 * 30 * 0.7 = 2625 gross, 393.75 fees.
	got := Profit(850, 600, 125, 0.7, 0.15)
	if got != 781 {
		t.Errorf("Profit = %d; want 781", got)
	}
}

func TestProfitTruncatesTowardZero(t *testing.T) {
	tests := []struct {
		rent  int
		bills float64
		rate  float64
		occ   float64
		fee   float64
		want  int
	}{
		{850, 600, 125, 0.7, 0.15, 781},      // 781.25
		{2000, 600, 125, 0.5, 0.15, -1006},   // -1006.25
		{0, 0, 10, 1, 0.15, 255},             // 255.0
		{1000, 0, 100, 0.333, 0.1, -100},     // -100.9
		{500, 100.5, 80, 0.6, 0.15, 623},     // 623.5
	}
	for _, tt := range tests {
		if got := Profit(tt.rent, tt.bills, tt.rate, tt.occ, tt.fee); got != tt.want {
			t.Errorf("Profit(%d, %v, %v, %v, %v) = %d; want %d", tt.rent, tt.bills, tt.rate, tt.occ, tt.fee, got, tt.want)
		}
	}
}

func TestProjectScenarios(t *testing.T) {
	s := Project(850, 600, 125, 0.15)
	// 50%: 1875 - 281.25 - 1450 = 143.75
	// 100%: 3750 - 562.5 - 1450 = 1737.5
	if s.At50 != 143 || s.At70 != 781 || s.At100 != 1737 {
		t.Errorf("Project = %+v", s)
	}
}

func TestProjectMonotonicInOccupancy(t *testing.T) {
	rents := []int{0, 450, 850, 1500, 4000}
	bills := []float64{0, 300, 600}
	nightly := []float64{0, 35, 99.99, 125, 310}
	fees := []float64{0, 0.03, 0.15, 0.5}
	for _, r := range rents {
		for _, b := range bills {
			for _, n := range nightly {
				for _, f := range fees {
					s := Project(r, b, n, f)
					if s.At50 > s.At70 || s.At70 > s.At100 {
						t.Errorf("not monotonic for rent=%d bills=%v rate=%v fee=%v: %+v", r, b, n, f, s)
					}
				}
			}
		}
	}
}
