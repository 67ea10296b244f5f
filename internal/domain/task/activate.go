package task

import (
	"fmt"
	"time"
)

// Rand is the random source consumed by Activate. Float64 must return a
// uniformly distributed value in [0, 1). *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// CooldownPolicy decides what happens to an eligible pooled task whose draw
// did not promote it.
type CooldownPolicy string

const (
	// CooldownKeep leaves CoolingUntil untouched; the task is drawn again on
	// the next activation.
	CooldownKeep CooldownPolicy = "keep"
	// CooldownAdvance restarts the cooldown: CoolingUntil becomes now + CoolDown.
	CooldownAdvance CooldownPolicy = "advance"
)

// ParseCooldownPolicy converts a configuration value into a CooldownPolicy.
func ParseCooldownPolicy(s string) (CooldownPolicy, error) {
	switch p := CooldownPolicy(s); p {
	case CooldownKeep, CooldownAdvance:
		return p, nil
	case "":
		return CooldownKeep, nil
	default:
		return "", fmt.Errorf("unknown cooldown policy %q", s)
	}
}

// Activate draws once per eligible pooled task and promotes it when the draw
// is below its probability. Pooled tasks are visited in title order so a
// seeded source gives reproducible results.
//
// A pooled task is eligible when its cooldown has elapsed and no active task
// holds the same title. Tasks that are not eligible consume no draw.
// The promoted tasks are returned in visiting order; the result is never nil.
func (s *Store) Activate(rng Rand, now time.Time, policy CooldownPolicy) []ActiveTask {
	now = normalize(now)
	promoted := make([]ActiveTask, 0)

	for _, title := range sortedKeys(s.pooled) {
		p := s.pooled[title]
		if !p.Eligible(now) {
			continue
		}
		if _, taken := s.active[title]; taken {
			continue
		}

		if rng.Float64() < p.Probability {
			a := p.Promote(now)
			delete(s.pooled, title)
			s.active[title] = a
			promoted = append(promoted, a)
			continue
		}

		if policy == CooldownAdvance {
			if next := now.Add(p.CoolDown); next.After(p.CoolingUntil) {
				p.CoolingUntil = next
				s.pooled[title] = p
			}
		}
	}

	return promoted
}
