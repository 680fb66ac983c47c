package inquiry

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/surgepay/core"
)

const (
	MsgSendFailure = "Failed to send your message. Please try again later."

	invalidEmailText = "enter a valid email address"
)

var nowFunc = time.Now // mockable

// Submission holds the submitted form values by field key.
type Submission map[string]string

type Service interface {
	// Submit validates sub against kind, notifies the internal distribution list and
	// confirms receipt to the submitter. Emails are sent synchronously.
	Submit(ctx context.Context, kind Kind, sub Submission) error
}

type service struct {
	mailSvc  core.EmailService
	validate *validator.Validate
	conf     *core.Config
}

func NewService(mailSvc core.EmailService, validate *validator.Validate, conf *core.Config) Service {
	return &service{mailSvc: mailSvc, validate: validate, conf: conf}
}

// clean trims every value of sub.
func (sub Submission) clean() Submission {
	out := make(Submission, len(sub))
	for k, v := range sub {
		out[k] = core.CleanString(v)
	}
	return out
}

func (svc *service) check(kind Kind, sub Submission) error {
	var missing []string
	for _, key := range kind.RequiredKeys() {
		if sub[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return core.NewRequiredFieldsError(missing...)
	}
	if err := svc.validate.Var(sub["email"], "email"); err != nil {
		return core.NewValidationError(
			errors.New("invalid email address"),
			core.FieldError{Field: "email", Error: invalidEmailText},
		)
	}
	return nil
}

func (svc *service) recipients(kind Kind) []mail.Address {
	list := kind.Recipients
	if len(list) == 0 {
		list = svc.conf.InquiryRecipients
	}
	addrs := make([]mail.Address, 0, len(list))
	for _, r := range list {
		if addr, err := mail.ParseAddress(r); err == nil {
			addrs = append(addrs, *addr)
		}
	}
	if len(addrs) == 0 {
		addrs = append(addrs, svc.conf.FromAddress())
	}
	return addrs
}

type fieldValue struct {
	Label string
	Value string
}

func (svc *service) Submit(ctx context.Context, kind Kind, sub Submission) error {
	sub = sub.clean()
	if err := svc.check(kind, sub); err != nil {
		return err
	}
	submitter := mail.Address{Name: sub["name"], Address: sub["email"]}

	fields := make([]fieldValue, 0, len(kind.Fields))
	for _, f := range kind.Fields {
		if v := sub[f.Key]; v != "" {
			fields = append(fields, fieldValue{Label: f.Label, Value: v})
		}
	}

	notification := &core.EmailMessage{
		To:           svc.recipients(kind),
		ReplyTo:      &submitter,
		Subject:      kind.Title + " from " + submitter.Name,
		TemplateName: "inquiry_notification",
		TemplateData: map[string]interface{}{
			"Title":       kind.Title,
			"Fields":      fields,
			"SubmittedAt": nowFunc().UTC().Format(time.RFC1123),
		},
	}
	if err := svc.mailSvc.Send(ctx, notification); err != nil {
		return errors.Wrapf(err, "sending %s notification", kind.Name)
	}

	confirmation := &core.EmailMessage{
		To:           []mail.Address{submitter},
		Subject:      kind.ConfirmationSubject,
		TemplateName: "inquiry_confirmation",
		TemplateData: map[string]interface{}{
			"Name":    submitter.Name,
			"Heading": kind.ConfirmationHeading,
			"Body":    kind.ConfirmationBody,
		},
	}
	if err := svc.mailSvc.Send(ctx, confirmation); err != nil {
		return errors.Wrapf(err, "sending %s confirmation", kind.Name)
	}
	return nil
}
