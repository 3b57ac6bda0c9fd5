package config

import "time"

// Config is the complete client configuration.
type Config struct {
	App   AppConfig   `koanf:"app" json:"app" yaml:"app" mapstructure:"app"`
	HTTP  HTTPConfig  `koanf:"http" json:"http" yaml:"http" mapstructure:"http"`
	Retry RetryConfig `koanf:"retry" json:"retry" yaml:"retry" mapstructure:"retry"`
	Log   LogConfig   `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
	Trace TraceConfig `koanf:"trace" json:"trace" yaml:"trace" mapstructure:"trace"`
}

// AppConfig names the calling service. Name doubles as the tracer name.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Version string `koanf:"version" json:"version" yaml:"version" mapstructure:"version"`
}

// HTTPConfig holds transport-facing client settings.
type HTTPConfig struct {
	// BaseURL is prepended to relative request URLs. Optional.
	BaseURL string `koanf:"baseurl" json:"baseurl" yaml:"baseurl" mapstructure:"baseurl" validate:"omitempty,url"`
	// Timeout bounds a single send on the underlying http.Client.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	// Headers are sent with every request unless the request sets them.
	Headers map[string]string `koanf:"headers" json:"headers" yaml:"headers" mapstructure:"headers"`
	// RequestIDHeader is the header carrying the per-call request ID (default: X-Request-ID).
	RequestIDHeader string `koanf:"requestidheader" json:"requestidheader" yaml:"requestidheader" mapstructure:"requestidheader"`
	// LogPayloads enables debug-level logging of headers and body previews.
	LogPayloads bool `koanf:"logpayloads" json:"logpayloads" yaml:"logpayloads" mapstructure:"logpayloads"`
	// MaxPayloadLogBytes caps the logged body preview (0 selects the client default).
	MaxPayloadLogBytes int `koanf:"maxpayloadlogbytes" json:"maxpayloadlogbytes" yaml:"maxpayloadlogbytes" mapstructure:"maxpayloadlogbytes" validate:"gte=0"`
}

// RetryConfig is the client-wide retry policy. Calls may override it with options.
type RetryConfig struct {
	// Attempts is the number of retries after the first send.
	Attempts int `koanf:"attempts" json:"attempts" yaml:"attempts" mapstructure:"attempts" validate:"gte=0,lte=10"`
	// BaseDelay is the delay before the first retry; it doubles for each later retry.
	BaseDelay time.Duration `koanf:"basedelay" json:"basedelay" yaml:"basedelay" mapstructure:"basedelay" validate:"gt=0"`
	// Jitter is the exclusive upper bound of the random delay added to every backoff.
	Jitter time.Duration `koanf:"jitter" json:"jitter" yaml:"jitter" mapstructure:"jitter" validate:"gte=0"`
	// Log emits a warning for every retry.
	Log bool `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// TraceConfig selects where call spans are exported.
type TraceConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is "stdout" or an OTLP collector address.
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	// Protocol is the OTLP transport: http or grpc.
	Protocol    string            `koanf:"protocol" json:"protocol" yaml:"protocol" mapstructure:"protocol" validate:"omitempty,oneof=http grpc"`
	Insecure    bool              `koanf:"insecure" json:"insecure" yaml:"insecure" mapstructure:"insecure"`
	Headers     map[string]string `koanf:"headers" json:"headers" yaml:"headers" mapstructure:"headers"`
	SampleRate  float64           `koanf:"samplerate" json:"samplerate" yaml:"samplerate" mapstructure:"samplerate" validate:"gte=0,lte=1"`
	Environment string            `koanf:"environment" json:"environment" yaml:"environment" mapstructure:"environment"`
}
