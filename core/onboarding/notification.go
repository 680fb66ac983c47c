package onboarding

const (
	MsgTokenMissing   = "Verification token is missing. Please use the link from your email."
	MsgSuccess        = "School setup completed successfully!"
	MsgDefaultFailure = "Something went wrong. Please try again."
	MsgNetworkFailure = "Network error. Please check your connection and try again."
)

type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
)

type Notification struct {
	Show    bool
	Message string
	Kind    NotificationKind
}

// Dismiss hides the notification; message and kind are kept.
func (n Notification) Dismiss() Notification {
	n.Show = false
	return n
}

func successNotification(msg string) Notification {
	return Notification{Show: true, Message: msg, Kind: KindSuccess}
}

func errorNotification(msg string) Notification {
	return Notification{Show: true, Message: msg, Kind: KindError}
}
