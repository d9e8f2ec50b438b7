// Copyright 2025 Certen Protocol

package finality

import "errors"

// ErrFinalityTimeout is returned by WaitForFinality when a block does not
// finalize within the requested timeout.
var ErrFinalityTimeout = errors.New("timed out waiting for block finality")
