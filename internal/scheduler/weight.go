package scheduler

import (
	"strings"

	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
)

// energyStride keeps every energy step smaller than one priority step.
const energyStride = 10

// ParseEnergy normalizes a stored energy tag. An empty tag means NO.
func ParseEnergy(raw string) (constants.EnergyLevel, error) {
	tag := strings.ToUpper(strings.TrimSpace(raw))
	if tag == "" {
		return constants.EnergyNo, nil
	}
	for _, e := range constants.EnergyLevels {
		if string(e) == tag {
			return e, nil
		}
	}
	return "", apperrors.Validation("parse energy", "unknown energy %q", raw)
}

// ParsePriority normalizes a stored priority tag. An empty tag means NO.
func ParsePriority(raw string) (constants.PriorityLevel, error) {
	tag := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(raw)), "_", "-")
	if tag == "" {
		return constants.PriorityNo, nil
	}
	for _, p := range constants.PriorityLevels {
		if string(p) == tag {
			return p, nil
		}
	}
	return "", apperrors.Validation("parse priority", "unknown priority %q", raw)
}

// EnergyIndex is the position of e in ascending order, or -1.
func EnergyIndex(e constants.EnergyLevel) int {
	for i, level := range constants.EnergyLevels {
		if level == e {
			return i
		}
	}
	return -1
}

// PriorityIndex is the position of p in ascending order, or -1.
func PriorityIndex(p constants.PriorityLevel) int {
	for i, level := range constants.PriorityLevels {
		if level == p {
			return i
		}
	}
	return -1
}

// Weight orders items by priority first and energy second. Unknown tiers
// weigh as the lowest tier; use ParsePriority and ParseEnergy to reject them.
func Weight(priority constants.PriorityLevel, energy constants.EnergyLevel) int {
	p := PriorityIndex(priority)
	if p < 0 {
		p = 0
	}
	e := EnergyIndex(energy)
	if e < 0 {
		e = 0
	}
	return p*energyStride + e
}

// EnergyFits reports whether an item of the given energy may go into a window
// tagged windowEnergy. Untagged windows accept anything.
func EnergyFits(windowEnergy, itemEnergy constants.EnergyLevel) bool {
	if windowEnergy == "" {
		return true
	}
	return EnergyIndex(windowEnergy) >= EnergyIndex(itemEnergy)
}
