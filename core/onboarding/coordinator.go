package onboarding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultDashboardPath = "/dashboard"
	DefaultRedirectDelay = 2 * time.Second
)

// Payload is the body of a completion request.
type Payload struct {
	SchoolName        string   `json:"schoolName"`
	Motto             string   `json:"motto"`
	Address           string   `json:"address"`
	Logo              string   `json:"logo"`
	Teachers          []string `json:"teachers"`
	Students          []string `json:"students"`
	VerificationToken string   `json:"verificationToken"`
}

func NewPayload(draft Draft, token string) Payload {
	draft = draft.clone()
	if draft.Teachers == nil {
		draft.Teachers = []string{}
	}
	if draft.Students == nil {
		draft.Students = []string{}
	}
	return Payload{
		SchoolName:        draft.SchoolName,
		Motto:             draft.Motto,
		Address:           draft.Address,
		Logo:              draft.Logo,
		Teachers:          draft.Teachers,
		Students:          draft.Students,
		VerificationToken: token,
	}
}

type (
	// Completer calls the onboarding completion endpoint.
	// A non-success answer is reported as a *RejectedError; any other error is a transport failure.
	Completer interface {
		CompleteOnboarding(ctx context.Context, payload Payload) (message string, err error)
	}

	Navigator interface {
		Navigate(path string)
	}

	NavigatorFunc func(path string)
)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// RejectedError is a non-success answer of the completion endpoint.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("onboarding rejected with status %d", e.StatusCode)
	}
	return fmt.Sprintf("onboarding rejected with status %d: %s", e.StatusCode, e.Message)
}

type Coordinator struct {
	completer     Completer
	navigator     Navigator
	dashboardPath string
	redirectDelay time.Duration
	afterFunc     func(d time.Duration, f func())
}

type CoordinatorOption func(*Coordinator)

func WithDashboardPath(path string) CoordinatorOption {
	return func(c *Coordinator) {
		if path != "" {
			c.dashboardPath = path
		}
	}
}

func WithRedirectDelay(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.redirectDelay = d
		}
	}
}

// WithAfterFunc replaces time.AfterFunc when scheduling the dashboard navigation.
func WithAfterFunc(afterFunc func(d time.Duration, f func())) CoordinatorOption {
	return func(c *Coordinator) { c.afterFunc = afterFunc }
}

func NewCoordinator(completer Completer, navigator Navigator, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		completer:     completer,
		navigator:     navigator,
		dashboardPath: DefaultDashboardPath,
		redirectDelay: DefaultRedirectDelay,
		afterFunc:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitOnboarding sends draft and token to the completion endpoint at most once and maps the
// answer to the notification to show. On success the dashboard navigation is scheduled after the
// redirect delay. Without a token the endpoint is never called.
func (c *Coordinator) SubmitOnboarding(ctx context.Context, draft Draft, token string) Notification {
	if strings.TrimSpace(token) == "" {
		return errorNotification(MsgTokenMissing)
	}

	msg, err := c.completer.CompleteOnboarding(ctx, NewPayload(draft, token))
	if err != nil {
		if rejected, ok := errors.Cause(err).(*RejectedError); ok {
			if rejected.Message != "" {
				return errorNotification(rejected.Message)
			}
			return errorNotification(MsgDefaultFailure)
		}
		return errorNotification(MsgNetworkFailure)
	}

	if msg == "" {
		msg = MsgSuccess
	}
	path := c.dashboardPath
	c.afterFunc(c.redirectDelay, func() { c.navigator.Navigate(path) })
	return successNotification(msg)
}
