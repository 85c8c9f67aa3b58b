package message

import (
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sadopc/spoonemu/internal/logger"
)

const defaultTimeout = 30 * time.Second

type options struct {
	client   *http.Client
	timeout  time.Duration
	logger   *zap.Logger
	out      io.Writer
	mode     MatchMode
	proxyURL string
	noProxy  string
}

// Option configures Open.
type Option func(*options)

func defaultOptions() options {
	return options{
		timeout: defaultTimeout,
		logger:  logger.L(),
		out:     os.Stdout,
		mode:    MatchPattern,
	}
}

// WithClient sends the request through c. Redirect following stays disabled.
func WithClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithTimeout bounds the whole exchange, body read included. Zero means no limit.
// With WithClient it applies only when the client has no Timeout of its own.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOutput sets where SetBody writes. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.out = w
		}
	}
}

func WithMatchMode(m MatchMode) Option {
	return func(o *options) { o.mode = m }
}

// WithProxy routes the request through an http, https or socks5 proxy.
// noProxy is a comma-separated host list that bypasses it.
func WithProxy(proxyURL, noProxy string) Option {
	return func(o *options) {
		o.proxyURL = proxyURL
		o.noProxy = noProxy
	}
}
