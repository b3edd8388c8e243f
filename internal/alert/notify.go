package alert

import (
	"context"
	"fmt"
	"strings"
)

// NotificationKind classifies a user-facing notification.
type NotificationKind string

const (
	NotifyPlaced    NotificationKind = "placed"
	NotifyCanceled  NotificationKind = "canceled"
	NotifyExpired   NotificationKind = "expired"
	NotifyTriggered NotificationKind = "triggered"
)

// Notification is handed to the Notifier for presentation.
type Notification struct {
	Kind  NotificationKind
	Alert string // alert uuid
	Title string
	Body  string
}

// Notifier presents notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// NotifyPolicy gates status notifications. Trigger notifications are
// always sent.
type NotifyPolicy struct {
	Placed   bool
	Canceled bool
	Expired  bool
}

// Prompt is a confirmation request shown before a destructive action.
type Prompt struct {
	Message   string
	Detail    string
	Buttons   []string
	DefaultID int
	CancelID  int
}

// Confirmer asks the user to confirm a Prompt.
type Confirmer interface {
	Confirm(p Prompt) bool
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(p Prompt) bool

func (f ConfirmerFunc) Confirm(p Prompt) bool {
	return f(p)
}

var cancelPrompt = Prompt{
	Message:   "Remove Alert",
	Detail:    "Are you sure you want to cancel this alert?",
	Buttons:   []string{"Do Nothing", "Cancel Alert"},
	DefaultID: 1,
	CancelID:  0,
}

// statusNotification builds the notification for entering status, if the
// policy asks for one.
func statusNotification(a *Alert, status Status, policy NotifyPolicy) (Notification, bool) {
	switch {
	case status == StatusOpen && policy.Placed:
		return Notification{
			Kind:  NotifyPlaced,
			Alert: a.uuid,
			Title: "Alert Placed",
			Body:  fmt.Sprintf("Transmitted %s alert.", a.describe()),
		}, true
	case status == StatusCanceled && policy.Canceled:
		return Notification{
			Kind:  NotifyCanceled,
			Alert: a.uuid,
			Title: "Alert Canceled",
			Body:  "Alert was successfully canceled.",
		}, true
	case status == StatusExpired && policy.Expired:
		return Notification{
			Kind:  NotifyExpired,
			Alert: a.uuid,
			Title: "Alert Expired",
			Body:  fmt.Sprintf("Your %s alert has expired.", a.describe()),
		}, true
	}
	return Notification{}, false
}

// describe renders e.g. "LAST PRICE ABOVE 100.5 on BTC-USD (Coinbase)".
func (a *Alert) describe() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(a.typ.Label()))
	if a.direction != "" {
		b.WriteString(" ")
		b.WriteString(strings.ToUpper(string(a.direction)))
	}
	b.WriteString(" ")
	b.WriteString(a.value.String())
	if a.market != nil {
		b.WriteString(" on ")
		b.WriteString(a.market.Title())
	}
	return b.String()
}
