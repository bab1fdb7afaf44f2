package expedition

import "time"

// Stamina gates the boost. Once Current hits zero the boost locks until
// Current regenerates all the way back to Max.
type Stamina struct {
	Current   float64 `json:"current"`
	Max       float64 `json:"max"`
	DrainRate float64 `json:"drainRate"`
	RegenRate float64 `json:"regenRate"`
	Locked    bool    `json:"locked"`
}

func NewStamina(max, drain, regen float64) Stamina {
	return Stamina{Current: max, Max: max, DrainRate: drain, RegenRate: regen}
}

func (s Stamina) CanBoost() bool {
	return s.Current > 0 && !s.Locked
}

// Update drains while boosting and regenerates otherwise.
func (s *Stamina) Update(dt time.Duration, boosting bool) {
	if dt <= 0 {
		return
	}
	secs := dt.Seconds()
	if boosting {
		s.Current -= s.DrainRate * secs
		if s.Current <= 0 {
			s.Current = 0
			s.Locked = true
		}
		return
	}
	s.Current += s.RegenRate * secs
	if s.Current >= s.Max {
		s.Current = s.Max
		s.Locked = false
	}
}

// Boost drains stamina for as much of dt as it can cover and regenerates for
// the remainder. It returns the covered portion; running dry mid-window locks
// the boost exactly as a run of short steps would.
func (s *Stamina) Boost(dt time.Duration) time.Duration {
	if dt <= 0 {
		return 0
	}
	if !s.CanBoost() {
		s.Update(dt, false)
		return 0
	}
	if s.DrainRate <= 0 {
		s.Update(dt, true)
		return dt
	}
	covered := time.Duration(s.Current / s.DrainRate * float64(time.Second))
	if covered >= dt {
		s.Update(dt, true)
		return dt
	}
	s.Current = 0
	s.Locked = true
	s.Update(dt-covered, false)
	return covered
}

// Fraction is Current/Max in [0, 1].
func (s Stamina) Fraction() float64 {
	if s.Max <= 0 {
		return 0
	}
	return s.Current / s.Max
}
