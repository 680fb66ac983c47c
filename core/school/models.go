package school

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/surgepay/core"
)

type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Motto     string    `json:"motto"`
	Address   string    `json:"address"`
	Logo      string    `json:"logo"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"` // UTC

	// set by CompleteOnboarding only
	Teachers []string `json:"teachers,omitempty" db:"-"`
	Students []string `json:"students,omitempty" db:"-"`
}

type Student struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"schoolId"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"` // UTC
}

// CompleteOnboarding is the payload sent by the onboarding wizard once all its steps are done.
type CompleteOnboarding struct {
	SchoolName        string   `json:"schoolName" validate:"required,notblank"`
	Motto             string   `json:"motto"`
	Address           string   `json:"address" validate:"required,notblank"`
	Logo              string   `json:"logo"`
	Teachers          []string `json:"teachers" validate:"omitempty,dive,required,email"`
	Students          []string `json:"students" validate:"omitempty,dive,required,notblank"`
	VerificationToken string   `json:"verificationToken" validate:"required"`
}

func (co *CompleteOnboarding) Validate(_ context.Context, validate *validator.Validate) error {
	co.SchoolName = core.CleanString(co.SchoolName)
	co.Motto = core.CleanString(co.Motto)
	co.Address = core.CleanString(co.Address)
	co.Logo = core.CleanString(co.Logo)
	co.VerificationToken = core.CleanString(co.VerificationToken)
	co.Teachers = dedupe(co.Teachers, true /* lower */)
	co.Students = dedupe(co.Students, false)

	return validate.Struct(co)
}

// dedupe cleans the entries of list and drops empty and repeated ones, keeping the first occurrence.
func dedupe(list []string, lower bool) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, item := range list {
		item = core.CleanString(item, lower)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
