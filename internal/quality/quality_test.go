package quality

import "testing"

func TestClassifyDemoRanges(t *testing.T) {
	cases := []struct {
		percent float64
		want    Tier
	}{
		{0, TierPoor},
		{24.9, TierPoor},
		{25, TierFair},
		{49.9, TierFair},
		{50, TierGood},
		{79.9, TierGood},
		{80, TierGreat},
		{100, TierGreat},
	}
	for _, tc := range cases {
		if got := DemoTable.Classify(tc.percent); got != tc.want {
			t.Errorf("DemoTable.Classify(%.1f) = %v, want %v", tc.percent, got, tc.want)
		}
	}
}

func TestClassifyLiveRanges(t *testing.T) {
	cases := []struct {
		percent float64
		want    Tier
	}{
		{0, TierPoor},
		{19, TierPoor},
		{20, TierFair},
		{40, TierGood},
		{60, TierGreat},
		{80, TierExcellent},
		{100, TierExcellent},
	}
	for _, tc := range cases {
		if got := LiveTable.Classify(tc.percent); got != tc.want {
			t.Errorf("LiveTable.Classify(%.1f) = %v, want %v", tc.percent, got, tc.want)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	for _, tb := range []Table{LiveTable, DemoTable} {
		prev := tb.Tiers[0]
		for p := 0.0; p <= 100; p += 0.5 {
			got := tb.Classify(p)
			if got < prev {
				t.Fatalf("%s: Classify(%.1f) = %v dropped below %v", tb.Source, p, got, prev)
			}
			prev = got
		}
	}
}

func TestMeets(t *testing.T) {
	if !LiveTable.Meets(60, TierGreat) {
		t.Error("60%% should meet a Great threshold on the live table")
	}
	if LiveTable.Meets(59.9, TierGreat) {
		t.Error("59.9%% should not meet a Great threshold on the live table")
	}
	if !DemoTable.Meets(0, TierPoor) {
		t.Error("any percent should meet a Poor threshold")
	}
}

func TestThresholdClampsAboveVocabulary(t *testing.T) {
	// Excellent is outside the demo vocabulary: clamp to the top tier cutoff.
	if got := DemoTable.Threshold(TierExcellent); got != 80 {
		t.Errorf("DemoTable.Threshold(Excellent) = %v, want 80", got)
	}
}

func TestParseTier(t *testing.T) {
	for _, label := range []string{"poor", "Fair", "GOOD", "great", "Excellent"} {
		if _, err := ParseTier(label); err != nil {
			t.Errorf("ParseTier(%q) returned error: %v", label, err)
		}
	}
	if _, err := ParseTier("amazing"); err == nil {
		t.Error("ParseTier should reject labels outside the vocabulary")
	}
}
