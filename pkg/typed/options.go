package typed

import "log/slog"

// options holds the internal configuration for a typed collection.
type options struct {
	logger *slog.Logger
}

// Option defines a functional option for configuring a collection.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		logger: nil, // logging is opt-in
	}
}

// WithLogger sets the logger for the collection.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
