package option

type CaptureOptions struct {
	// Preset selects the base method-to-level table: "default" or "info".
	Preset string `json:"preset,omitempty"`
	// Levels overrides single methods, e.g. {"log": "info"}.
	Levels map[string]string `json:"levels,omitempty"`
}
