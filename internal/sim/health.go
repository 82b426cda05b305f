package sim

import "math/rand"

// InitialHealth seeds a patient's health score from the configured
// (injury category, severity band) table. A missing entry never fails:
// the midpoint of the named band's health range is used, and if the band
// is unknown too, half of maxHealth.
func InitialHealth(sc *ScenarioConfig, category InjuryCategory, band string) float64 {
	if byBand, ok := sc.InitialHealth[category]; ok {
		if h, ok := byBand[band]; ok {
			return clampHealth(h, sc.MaxHealth)
		}
	}
	for _, b := range sc.Deterioration.Bands {
		if b.Name == band {
			return clampHealth((b.MinHealth+b.MaxHealth)/2, sc.MaxHealth)
		}
	}
	return sc.MaxHealth / 2
}

// GoldenHourMultiplier returns the time-since-injury deterioration factor:
// 1.0 while elapsed is below the configured delay, rising linearly to
// MaxMultiplier at MaxAtHours and clamped beyond it. A zero MaxMultiplier
// disables the effect.
func GoldenHourMultiplier(elapsedHours float64, p GoldenHourParams) float64 {
	if p.MaxMultiplier <= 1 {
		return 1
	}
	if elapsedHours <= p.DelayHours {
		return 1
	}
	if elapsedHours >= p.MaxAtHours || p.MaxAtHours <= p.DelayHours {
		return p.MaxMultiplier
	}
	frac := (elapsedHours - p.DelayHours) / (p.MaxAtHours - p.DelayHours)
	return 1 + (p.MaxMultiplier-1)*frac
}

// SampleCliffEvent rolls for an acute-complication health drop for one
// simulated hour. It fires with ProbabilityPerHour only while the current
// health lies inside the configured range; the drop is uniform over
// [MinDrop, MaxDrop]. The RNG is explicit so runs are reproducible.
func SampleCliffEvent(health, elapsedHours float64, p CliffEventParams, rng *rand.Rand) (float64, bool) {
	if p.ProbabilityPerHour <= 0 {
		return 0, false
	}
	if health < p.MinHealth || health > p.MaxHealth {
		return 0, false
	}
	if rng.Float64() >= p.ProbabilityPerHour {
		return 0, false
	}
	return p.MinDrop + rng.Float64()*(p.MaxDrop-p.MinDrop), true
}

func clampHealth(h, max float64) float64 {
	if h < 0 {
		return 0
	}
	if h > max {
		return max
	}
	return h
}
