package option

type LogOptions struct {
	Disabled     bool        `json:"disabled,omitempty"`
	Level        string      `json:"level,omitempty"`
	Output       string      `json:"output,omitempty"`
	Timestamp    bool        `json:"timestamp,omitempty"`
	DisableColor bool        `json:"disable_color,omitempty"`
	Outputs      []LogOutput `json:"outputs,omitempty"`
	// RegistryLength bounds the in-process registry; zero keeps the default.
	RegistryLength int `json:"registry_length,omitempty"`
}

// LogOutput configures one destination of the multi-output mode.
type LogOutput struct {
	Type         string `json:"type"`
	Format       string `json:"format,omitempty"`
	Path         string `json:"path,omitempty"`
	Hostname     string `json:"hostname,omitempty"`
	Version      string `json:"version,omitempty"`
	Timestamp    bool   `json:"timestamp,omitempty"`
	DisableColor bool   `json:"disable_color,omitempty"`
}
