package config

import "time"

// Limits gathers every retry interval, budget and size ceiling used by the
// core components. Each component receives a copy at construction.
type Limits struct {
	// MaxRounds bounds the number of model calls in one agentic run.
	MaxRounds int `yaml:"max_rounds,omitempty"`

	// PollInterval is the minimum wait between two device-flow polls.
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	// SlowDownBackoff is added to the poll interval on every slow_down signal.
	SlowDownBackoff time.Duration `yaml:"slow_down_backoff,omitempty"`
	// AuthTimeout bounds the whole device flow.
	AuthTimeout time.Duration `yaml:"auth_timeout,omitempty"`

	MaxReadBytes       int64 `yaml:"max_read_bytes,omitempty"`
	MaxOutputChars     int   `yaml:"max_output_chars,omitempty"`
	MaxListEntries     int   `yaml:"max_list_entries,omitempty"`
	MaxSearchResults   int   `yaml:"max_search_results,omitempty"`
	MaxSearchFileBytes int64 `yaml:"max_search_file_bytes,omitempty"`

	CommandTimeout time.Duration `yaml:"command_timeout,omitempty"`

	// ValidationTTL is how long a successful credential check is remembered.
	ValidationTTL time.Duration `yaml:"validation_ttl,omitempty"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxRounds:          25,
		PollInterval:       5 * time.Second,
		SlowDownBackoff:    5 * time.Second,
		AuthTimeout:        15 * time.Minute,
		MaxReadBytes:       512 * 1024,
		MaxOutputChars:     30000,
		MaxListEntries:     500,
		MaxSearchResults:   100,
		MaxSearchFileBytes: 1024 * 1024,
		CommandTimeout:     2 * time.Minute,
		ValidationTTL:      5 * time.Minute,
	}
}

// WithDefaults returns l with every unset field taken from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxRounds <= 0 {
		l.MaxRounds = d.MaxRounds
	}
	if l.PollInterval <= 0 {
		l.PollInterval = d.PollInterval
	}
	if l.SlowDownBackoff <= 0 {
		l.SlowDownBackoff = d.SlowDownBackoff
	}
	if l.AuthTimeout <= 0 {
		l.AuthTimeout = d.AuthTimeout
	}
	if l.MaxReadBytes <= 0 {
		l.MaxReadBytes = d.MaxReadBytes
	}
	if l.MaxOutputChars <= 0 {
		l.MaxOutputChars = d.MaxOutputChars
	}
	if l.MaxListEntries <= 0 {
		l.MaxListEntries = d.MaxListEntries
	}
	if l.MaxSearchResults <= 0 {
		l.MaxSearchResults = d.MaxSearchResults
	}
	if l.MaxSearchFileBytes <= 0 {
		l.MaxSearchFileBytes = d.MaxSearchFileBytes
	}
	if l.CommandTimeout <= 0 {
		l.CommandTimeout = d.CommandTimeout
	}
	if l.ValidationTTL <= 0 {
		l.ValidationTTL = d.ValidationTTL
	}
	return l
}
