// SPDX-License-Identifier: GPL-3.0-or-later

package netcore

import "github.com/bassosimone/netcore/errclass"

// ErrClassifier classifies errors into categorical strings for structured
// logging.
//
// Implementations map errors to short, descriptive labels (e.g.,
// "TimedOut", "ConnectionClosed") that facilitate systematic analysis of
// the resulting logs.
type ErrClassifier interface {
	Classify(err error) string
}

// ErrClassifierFunc adapts a function to the [ErrClassifier] interface.
//
// This allows using simple functions as classifiers:
//
//	op.ErrClassifier = ErrClassifierFunc(errclass.Classify)
type ErrClassifierFunc func(error) string

var _ ErrClassifier = ErrClassifierFunc(nil)

// Classify implements [ErrClassifier].
func (f ErrClassifierFunc) Classify(err error) string {
	return f(err)
}

// DefaultErrClassifier classifies errors using [errclass.Classify], which
// recovers the taxonomy shared by every netcore package.
var DefaultErrClassifier = ErrClassifierFunc(errclass.Classify)
