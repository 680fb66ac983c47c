package inquiry

// Field is an entry of an inquiry form. Key is the JSON key of the submitted value.
type Field struct {
	Key      string
	Label    string
	Required bool
}

// Kind describes one inquiry form: what it requires and the emails it sends.
type Kind struct {
	Name   string
	Fields []Field

	// internal notification
	Title      string // also the subject prefix
	Recipients []string

	// confirmation sent back to the submitter
	ConfirmationSubject string
	ConfirmationHeading string
	ConfirmationBody    string

	SuccessMessage string
}

// RequiredKeys lists the keys of the required fields, in form order.
func (k Kind) RequiredKeys() []string {
	keys := make([]string, 0, len(k.Fields))
	for _, f := range k.Fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

var (
	nameField    = Field{Key: "name", Label: "Name", Required: true}
	emailField   = Field{Key: "email", Label: "Email", Required: true}
	phoneField   = Field{Key: "phone", Label: "Phone"}
	messageField = Field{Key: "message", Label: "Message", Required: true}

	Contact = Kind{
		Name: "contact",
		Fields: []Field{
			nameField,
			emailField,
			phoneField,
			{Key: "subject", Label: "Subject"},
			messageField,
		},
		Title:               "New contact message",
		ConfirmationSubject: "We received your message",
		ConfirmationHeading: "Thanks for reaching out!",
		ConfirmationBody:    "We have received your message and will get back to you as soon as possible.",
		SuccessMessage:      "Your message has been sent successfully!",
	}

	Enterprise = Kind{
		Name: "enterprise",
		Fields: []Field{
			nameField,
			emailField,
			phoneField,
			{Key: "organization", Label: "Organization", Required: true},
			{Key: "schoolCount", Label: "Number of schools"},
			messageField,
		},
		Title:               "New enterprise inquiry",
		ConfirmationSubject: "We received your enterprise inquiry",
		ConfirmationHeading: "Thanks for your interest in our enterprise plan!",
		ConfirmationBody:    "Our team will review your request and contact you within two business days.",
		SuccessMessage:      "Your enterprise inquiry has been sent successfully!",
	}

	Partnership = Kind{
		Name: "partnership",
		Fields: []Field{
			nameField,
			emailField,
			phoneField,
			{Key: "company", Label: "Company", Required: true},
			{Key: "website", Label: "Website"},
			{Key: "partnershipType", Label: "Partnership type", Required: true},
			messageField,
		},
		Title:               "New partnership inquiry",
		ConfirmationSubject: "We received your partnership inquiry",
		ConfirmationHeading: "Thanks for wanting to partner with us!",
		ConfirmationBody:    "Our partnerships team will review your proposal and get back to you shortly.",
		SuccessMessage:      "Your partnership inquiry has been sent successfully!",
	}

	SchoolPartnership = Kind{
		Name: "school-partnership",
		Fields: []Field{
			nameField,
			emailField,
			phoneField,
			{Key: "schoolName", Label: "School name", Required: true},
			{Key: "role", Label: "Role", Required: true},
			{Key: "studentCount", Label: "Number of students"},
			messageField,
		},
		Title:               "New school partnership inquiry",
		ConfirmationSubject: "We received your school partnership inquiry",
		ConfirmationHeading: "Thanks for your interest in partnering with us!",
		ConfirmationBody:    "Our schools team will reach out to discuss how we can work with your school.",
		SuccessMessage:      "Your school partnership inquiry has been sent successfully!",
	}

	// Kinds are all the inquiry forms, each served at /v1/<Name>.
	Kinds = []Kind{Contact, Enterprise, Partnership, SchoolPartnership}
)
