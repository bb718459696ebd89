package music

// DynamicLevel is one of the eight standard loudness markings.
type DynamicLevel string

// Dynamic levels from softest to loudest.
const (
	PPP DynamicLevel = "ppp"
	PP  DynamicLevel = "pp"
	P   DynamicLevel = "p"
	MP  DynamicLevel = "mp"
	MF  DynamicLevel = "mf"
	F   DynamicLevel = "f"
	FF  DynamicLevel = "ff"
	FFF DynamicLevel = "fff"
)

// DynamicLevels lists all levels in loudness order.
var DynamicLevels = []DynamicLevel{PPP, PP, P, MP, MF, F, FF, FFF}

// Rank returns the loudness rank of l (0 for ppp) or -1 if l is unknown.
func (l DynamicLevel) Rank() int {
	for i, v := range DynamicLevels {
		if v == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is one of the eight standard levels.
func (l DynamicLevel) Valid() bool { return l.Rank() >= 0 }

// DynamicSample is one loudness measurement already classified by the
// audio analyzer.
type DynamicSample struct {
	Time  float64      `json:"time"`
	DB    float64      `json:"db"`
	Level DynamicLevel `json:"level"`
}

// ValidateDynamics checks a loudness series.
func ValidateDynamics(samples []DynamicSample) error {
	for i, s := range samples {
		fail := func(field, reason string) error {
			return &ValidationError{Sequence: "dynamics", Index: i, Field: field, Reason: reason}
		}
		switch {
		case !finite(s.Time) || s.Time < 0:
			return fail("time", "must be finite and non-negative")
		case !finite(s.DB):
			return fail("db", "must be finite")
		case !s.Level.Valid():
			return fail("level", "must be one of ppp..fff")
		}
	}
	return nil
}
