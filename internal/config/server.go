package config

type ServerConfig struct {
	HTTP HTTPConfig `yaml:"http"`
	GRPC GRPCConfig `yaml:"grpc"`
}

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type GRPCConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// Channel receives payment status events.
	Channel string `yaml:"channel"`
}

// Enabled reports whether status events should be published.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port. Tracing is off when empty.
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type WebhookConfig struct {
	Secret string `yaml:"secret"`
}
