package supervisor

import (
	"time"
)

type Config struct {
	HistoryWindow       int           `split_words:"true" default:"6"`
	MaxToolCalls        int           `split_words:"true" default:"4"`
	RetryBackoff        time.Duration `split_words:"true" default:"500ms"`
	ClassifierCacheSize int           `split_words:"true" default:"1024"`
	GenderTable         string        `split_words:"true"`
}

func (c Config) withDefaults() Config {
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 6
	}
	if c.MaxToolCalls <= 0 {
		c.MaxToolCalls = 4
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	}
	if c.ClassifierCacheSize < 0 {
		c.ClassifierCacheSize = 0
	}
	return c
}
