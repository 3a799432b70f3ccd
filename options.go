package apicall

import (
	"log/slog"
	"net/http"
)

const defaultMaxBody = 10 << 20

type Config struct {
	client        HttpClient
	logger        *slog.Logger
	maxBody       int64
	codec         Codec
	sink          ExampleSink
	header        http.Header
	authorization string
}

func NewDefaultConfig() *Config {
	return &Config{
		logger:  slog.Default(),
		maxBody: defaultMaxBody,
		codec:   JSONCodec{},
		header:  make(http.Header),
	}
}

type Option func(*Config)

// CustomClient replaces the default HTTP client. Redirects are not
// followed by the default one.
func CustomClient(client HttpClient) Option {
	return func(config *Config) {
		config.client = client
	}
}

// Logger sets the logger for request traces and dropped arguments.
func Logger(logger *slog.Logger) Option {
	return func(config *Config) {
		config.logger = logger
	}
}

// MaxBody limits the size of a response body.
func MaxBody(maxBody int64) Option {
	return func(config *Config) {
		config.maxBody = maxBody
	}
}

// WithCodec sets the codec of request and response bodies.
func WithCodec(codec Codec) Option {
	return func(config *Config) {
		config.codec = codec
	}
}

// WithExampleSink receives example values of body parameters.
func WithExampleSink(sink ExampleSink) Option {
	return func(config *Config) {
		config.sink = sink
	}
}

// DefaultHeader adds a header sent with every request.
func DefaultHeader(key, value string) Option {
	return func(config *Config) {
		config.header.Add(key, value)
	}
}

// Authorization sets the Authorization header of every request.
func Authorization(authorization string) Option {
	return func(config *Config) {
		config.authorization = authorization
	}
}
