package config

// Config is the crasd daemon's top-level configuration: the idle-close
// override, which cards to seed at startup, and where the control
// socket listens.
type Config struct {
	IdleTimeoutMs    int          `json:"idle_timeout_ms"`
	LogLevel         string       `json:"log_level"`
	ControlSocket    string       `json:"control_socket"`
	SeedFallbackOnly bool         `json:"seed_fallback_only,omitempty"`
	Cards            []CardConfig `json:"cards"`
}

// CardConfig names one sound card to probe at startup and the path to
// its per-card descriptor file. The descriptor itself is parsed by the
// cardconfig package, an external collaborator this type only points at.
type CardConfig struct {
	Name           string `json:"name"`
	DescriptorPath string `json:"descriptor_path,omitempty"`
	Disabled       bool   `json:"disabled,omitempty"`
}
