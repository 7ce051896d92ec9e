// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package libsupla

import "errors"

// Sentinel errors returned by the public API. Callers should use
// errors.Is, since some are wrapped with additional context.
var (
	ErrInvalidArgument      = errors.New("libsupla: invalid argument")
	ErrChannelConflict      = errors.New("libsupla: channel configuration conflict")
	ErrAuthKeyInvalid       = errors.New("libsupla: auth key invalid")
	ErrGUIDInvalid          = errors.New("libsupla: GUID invalid")
	ErrChannelMax           = errors.New("libsupla: channel count exceeds maximum")
	ErrTransportUnreachable = errors.New("libsupla: server unreachable")
	ErrNotStarted           = errors.New("libsupla: device not started")
	ErrAlreadyStarted       = errors.New("libsupla: device already started")
	ErrChannelNotFound      = errors.New("libsupla: channel not found")
)
