// Copyright (c) 2026 libsupla contributors. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package libsupla

// NotificationField is a bitmask of the fields of a push notification the
// server may manage itself, overriding whatever the device supplies.
type NotificationField uint8

const (
	NotificationFieldTitle NotificationField = 1 << iota
	NotificationFieldMessage
	NotificationFieldSound
)

// DeviceTargetCtx is the SendNotification ctx value that targets the device
// itself rather than one of its channels.
const DeviceTargetCtx int16 = -1

// Notification is a push message a device can ask the server to relay to
// the owning user's mobile app.
type Notification struct {
	// Ctx is the notification's target context: DeviceTargetCtx for the
	// device itself, otherwise the assigned number of one of its channels.
	Ctx     int16
	Title   string
	Message string
	// SoundID selects one of the app's built-in notification sounds; 0
	// uses the app's default.
	SoundID   uint8
	WithSound bool
}

// EnableNotifications turns on push-notification support for this device.
// srvManagedFields names which fields (title, message, sound) the server
// manages on its own; SendNotification suppresses the device-supplied value
// for any field named here, since the server will fill it in itself.
func (d *Device) EnableNotifications(srvManagedFields NotificationField) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifyEnabled = true
	d.notifyServerManagedFields = srvManagedFields
}

// DisableNotifications turns off push-notification support for this
// device.
func (d *Device) DisableNotifications() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifyEnabled = false
	d.notifyServerManagedFields = 0
}

// SendNotification queues a user-facing notification to be delivered the
// next time the device is Online. ctx is DeviceTargetCtx to target the
// device itself, or a channel's assigned number to target that channel.
// Fields the server manages (set via EnableNotifications) are sent empty;
// the server fills them in on delivery. It returns ErrNotStarted if the
// device has never been started, since there is otherwise nowhere to queue
// it.
func (d *Device) SendNotification(ctx int16, title, body string, soundID uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return ErrNotStarted
	}
	n := Notification{Ctx: ctx, Title: title, Message: body, SoundID: soundID, WithSound: soundID != 0}
	if d.notifyServerManagedFields&NotificationFieldTitle != 0 {
		n.Title = ""
	}
	if d.notifyServerManagedFields&NotificationFieldMessage != 0 {
		n.Message = ""
	}
	if d.notifyServerManagedFields&NotificationFieldSound != 0 {
		n.SoundID = 0
		n.WithSound = false
	}
	d.pendingNotifications = append(d.pendingNotifications, n)
	return nil
}
