package traceio

import "go.uber.org/zap"

type options struct {
	logger *zap.Logger
}

// Option configures writers and readers.
type Option func(*options)

// WithLogger sets the logger used for open/finish diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
