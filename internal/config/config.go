package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	MongoURI string `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDB  string `mapstructure:"mongo_db" yaml:"mongo_db"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	GuestMode bool `mapstructure:"guest_mode" yaml:"guest_mode"`

	// WSMessageRateLimit caps inbound frames per connection per minute.
	// Zero disables the limit.
	WSMessageRateLimit int `mapstructure:"ws_message_rate_limit" yaml:"ws_message_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":3030",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		MongoURI:           "mongodb://localhost:27017",
		MongoDB:            "toyshop",
		JWTSecret:          "change-me-in-production",
		JWTIssuer:          "toyshop",
		JWTAudience:        "toyshop-clients",
		GuestMode:          true,
		WSMessageRateLimit: 120,
	}
}
