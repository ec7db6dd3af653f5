package flows

import (
	"strings"
	"time"

	retryx "github.com/rishi-noob/soulsyncmain/agent/retry"
)

// Config is loaded with prefix PIPELINE.
type Config struct {
	RetryMaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" split_words:"true" default:"3"`
	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" split_words:"true" default:"1s"`
	// CallTimeout bounds one whole flow call, retries included. Zero disables it.
	CallTimeout   time.Duration `envconfig:"CALL_TIMEOUT" split_words:"true" default:"90s"`
	HotlineNotice string        `envconfig:"HOTLINE_NOTICE" split_words:"true"`
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts: retryx.DefaultMaxAttempts,
		RetryBaseDelay:   retryx.DefaultBaseDelay,
		CallTimeout:      90 * time.Second,
	}
}

func (c Config) RetryPolicy() retryx.Policy {
	p := retryx.Policy{MaxAttempts: c.RetryMaxAttempts, BaseDelay: c.RetryBaseDelay}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = retryx.DefaultMaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = retryx.DefaultBaseDelay
	}
	return p
}

func (c Config) hotlineNotice() string {
	return strings.TrimSpace(c.HotlineNotice)
}
