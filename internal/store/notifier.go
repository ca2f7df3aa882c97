package store

// Notification is a transient message about the outcome of a store operation.
type Notification struct {
	Title       string
	Description string
	Destructive bool
}

// Notifier receives notifications, typically to show them as toasts.
type Notifier interface {
	Notify(Notification)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(Notification) {}
