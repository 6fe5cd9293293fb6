package scheduler

import (
	"testing"

	"github.com/julianstephens/timeblock/internal/constants"
)

func TestWeightPriorityDominates(t *testing.T) {
	for pi := 1; pi < len(constants.PriorityLevels); pi++ {
		lowerPriorityMaxEnergy := Weight(constants.PriorityLevels[pi-1], constants.EnergyExtreme)
		higherPriorityMinEnergy := Weight(constants.PriorityLevels[pi], constants.EnergyNo)
		if higherPriorityMinEnergy <= lowerPriorityMaxEnergy {
			t.Errorf("priority %s with NO energy (%d) should outweigh %s with EXTREME energy (%d)",
				constants.PriorityLevels[pi], higherPriorityMinEnergy, constants.PriorityLevels[pi-1], lowerPriorityMaxEnergy)
		}
	}
}

func TestWeightEnergyBreaksTies(t *testing.T) {
	for ei := 1; ei < len(constants.EnergyLevels); ei++ {
		a := Weight(constants.PriorityMedium, constants.EnergyLevels[ei-1])
		b := Weight(constants.PriorityMedium, constants.EnergyLevels[ei])
		if b <= a {
			t.Errorf("energy %s should weigh more than %s", constants.EnergyLevels[ei], constants.EnergyLevels[ei-1])
		}
	}
	if Weight(constants.PriorityHigh, constants.EnergyMedium) != 32 {
		t.Errorf("Weight(HIGH, MEDIUM) = %d, want 32", Weight(constants.PriorityHigh, constants.EnergyMedium))
	}
}

func TestParseTiers(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		energy  bool
		want    string
		wantErr bool
	}{
		{name: "energy lower case", raw: "high", energy: true, want: "HIGH"},
		{name: "energy empty", raw: "", energy: true, want: "NO"},
		{name: "energy unknown", raw: "MEGA", energy: true, wantErr: true},
		{name: "priority hyphen", raw: "ultra-critical", want: "ULTRA-CRITICAL"},
		{name: "priority underscore", raw: "ULTRA_CRITICAL", want: "ULTRA-CRITICAL"},
		{name: "priority empty", raw: " ", want: "NO"},
		{name: "priority unknown", raw: "URGENT", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			var err error
			if tt.energy {
				var e constants.EnergyLevel
				e, err = ParseEnergy(tt.raw)
				got = string(e)
			} else {
				var p constants.PriorityLevel
				p, err = ParsePriority(tt.raw)
				got = string(p)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnergyFits(t *testing.T) {
	if !EnergyFits("", constants.EnergyExtreme) {
		t.Error("unlabeled window should accept everything")
	}
	if !EnergyFits(constants.EnergyHigh, constants.EnergyMedium) {
		t.Error("HIGH window should accept MEDIUM item")
	}
	if EnergyFits(constants.EnergyLow, constants.EnergyHigh) {
		t.Error("LOW window should reject HIGH item")
	}
	if EnergyFits("BOGUS", constants.EnergyNo) {
		t.Error("unknown window energy should reject items")
	}
}
