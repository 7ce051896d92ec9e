// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package libsupla implements a SUPLA IoT device client: a long-lived
// session against a SUPLA cloud server carrying typed channels (sensors,
// relays, meters, action triggers) over the SRPC wire protocol.
//
// A host application builds a Device, adds Channels to it describing the
// hardware it exposes, and calls Start to bring the session online. The
// device reconnects and re-registers automatically; channel values pushed
// with the Set* methods are synced to the server on the next tick.
package libsupla
