package core

import "time"

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a transient, user-visible message (a toast).
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Variant     Variant   `json:"variant"`
	CreatedAt   time.Time `json:"created_at"`
}

func (n Notification) Destructive() bool { return n.Variant == VariantDestructive }

func Success(title string, description ...string) Notification {
	n := Notification{Title: title, Variant: VariantDefault}
	if len(description) > 0 {
		n.Description = description[0]
	}
	return n
}

func Failure(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive}
}

// Notifier is anything that can surface notifications to the user.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }
