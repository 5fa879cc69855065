// SPDX-License-Identifier: GPL-3.0-or-later

package netcore

import (
	"context"
	"errors"
	"testing"

	"github.com/bassosimone/netcore/errclass"
	"github.com/stretchr/testify/assert"
)

func TestDefaultErrClassifier(t *testing.T) {
	// Should return empty string for nil error
	result := DefaultErrClassifier.Classify(nil)
	assert.Equal(t, "", result)

	// Should classify known errors using errclass
	result = DefaultErrClassifier.Classify(context.DeadlineExceeded)
	assert.Equal(t, string(errclass.TimedOut), result)

	// Should return UnknownError for unclassifiable errors
	result = DefaultErrClassifier.Classify(errors.New("unknown error"))
	assert.Equal(t, string(errclass.UnknownError), result)
}
