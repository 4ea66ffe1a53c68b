package mastery

// DefaultKnownIntervalDays is the review interval, in days, at which a new
// card counts as mastered.
const DefaultKnownIntervalDays = 21

// Params defines the tunable parameters of the mastery rules.
// A Params value is fixed for the duration of a sync run.
type Params struct {
	// KnownIntervalDays is the promotion threshold. Every card of a note must
	// reach it before the note is promoted to known.
	KnownIntervalDays int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	KnownIntervalDays int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		KnownIntervalDays: DefaultKnownIntervalDays,
	}
}

// NewParams creates a new Params instance with custom configuration.
// Zero or negative values fall back to the defaults.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.KnownIntervalDays > 0 {
		params.KnownIntervalDays = config.KnownIntervalDays
	}

	return params
}
