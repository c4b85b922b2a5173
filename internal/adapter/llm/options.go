package llm

const (
	DefaultModel       = "claude-3-5-sonnet-20241022"
	DefaultVisionModel = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
)

// Defaults are the configured request parameters applied when a caller does
// not override them.
type Defaults struct {
	Model       string
	VisionModel string
	MaxTokens   int
	Temperature float64
}

// DefaultDefaults returns the built-in defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Model:       DefaultModel,
		VisionModel: DefaultVisionModel,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

// Overrides are optional per-request parameters. Zero values mean "use default".
type Overrides struct {
	Model        string
	MaxTokens    *int
	Temperature  *float64
	SystemPrompt string
}

// Options are the fully resolved parameters of one upstream call.
type Options struct {
	Model        string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
	Stream       bool
}

// Resolve merges overrides onto the defaults. The vision variant differs
// only in its default model.
func (d Defaults) Resolve(o Overrides, vision bool) Options {
	opts := Options{
		Model:        d.Model,
		MaxTokens:    d.MaxTokens,
		Temperature:  d.Temperature,
		SystemPrompt: o.SystemPrompt,
	}
	if vision && d.VisionModel != "" {
		opts.Model = d.VisionModel
	}
	if o.Model != "" {
		opts.Model = o.Model
	}
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		opts.MaxTokens = *o.MaxTokens
	}
	if o.Temperature != nil {
		opts.Temperature = *o.Temperature
	}
	return opts
}
