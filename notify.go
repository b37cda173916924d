package ble

// NotificationHandler receives a Handle Value Notification or Indication
// payload for one subscription. id is a per-subscription sequence number
// (incremented on every delivery) that lets a handler detect drops if it
// keeps its own counter.
type NotificationHandler func(id uint, data []byte)
