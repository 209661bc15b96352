package models

import "testing"

func TestDistributionType_String(t *testing.T) {
	cases := map[DistributionType]string{
		SameAmount:          "SameAmount",
		Weighted:            "Weighted",
		DistributionType(9): "Unknown",
	}
	for d, want := range cases {
		if got := d.String(); got != want {
			t.Errorf("Expected %s, but got %s", want, got)
		}
	}
}
