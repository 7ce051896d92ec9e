// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package slot

import "errors"

var (
	ErrExtendedValueTooLarge = errors.New("slot: extended value exceeds maximum size")
	ErrActionNotSupported    = errors.New("slot: action not in channel's capability set")
	ErrActionDisabled        = errors.New("slot: action disabled by a conflicting action already fired")
)
