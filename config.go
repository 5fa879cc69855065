// SPDX-License-Identifier: GPL-3.0-or-later

package netcore

import "time"

// Config holds common configuration shared by netcore constructors.
//
// Pass this to constructors across netcore's packages to pre-wire
// dependencies. All fields have sensible defaults set by [NewConfig].
type Config struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now]. Override in tests for deterministic
	// timestamps in captured log records.
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		ErrClassifier: DefaultErrClassifier,
		TimeNow:       time.Now,
	}
}
