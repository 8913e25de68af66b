package models

// SendStatus represents the terminal state of one recipient send.
type SendStatus string

// SendStatus constants define the possible outcomes of a send attempt.
const (
	SendStatusSent   SendStatus = "sent"
	SendStatusFailed SendStatus = "failed"
)

// DryRunMessageID is reported as the provider message id for simulated sends.
const DryRunMessageID = "dry-run"

// Attachment is an inline CV supplied with a request, base64-encoded.
type Attachment struct {
	Filename      string `json:"filename"`
	ContentBase64 string `json:"content"`
	ContentType   string `json:"contentType,omitempty"`
}

// Applicant carries the personal details used to build the email signature.
// Empty fields fall back to the authenticated user's profile, then to
// service-level defaults.
type Applicant struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
}

// ApplicationRequest is one queued job application. The To field holds a
// comma-separated recipient list which is expanded at send time.
type ApplicationRequest struct {
	To       string `json:"to"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`

	// tracking fields, persisted verbatim to the record log
	Location          string `json:"location,omitempty"`
	ContractType      string `json:"contractType,omitempty"`
	ApplicationStatus string `json:"applicationStatus,omitempty"`
	AppliedAt         string `json:"appliedAt,omitempty"`
	Website           string `json:"website,omitempty"`
	Notes             string `json:"notes,omitempty"`

	// explicit body overrides; when empty the template builder is used
	Subject string `json:"subject,omitempty"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`

	Applicant *Applicant `json:"applicant,omitempty"`

	// attachment resolution order: inline attachment, then CVPath, then the
	// service-level default CV path
	Attachment *Attachment `json:"attachment,omitempty"`
	CVPath     string      `json:"cvPath,omitempty"`

	// per-item override of the batch-level dry-run flag
	DryRun *bool `json:"dryRun,omitempty"`
}

// BatchRequest wraps an ordered list of applications with global options.
// A non-positive Limit means "process all".
type BatchRequest struct {
	Applications []ApplicationRequest `json:"applications"`
	Limit        int                  `json:"limit,omitempty"`
	DelayMs      int                  `json:"delayMs,omitempty"`
	DryRun       bool                 `json:"dryRun,omitempty"`
}

// SendResult is the outcome of one recipient send. Index is the position of
// the originating application within the batch.
type SendResult struct {
	Status SendStatus `json:"status"`
	Index  int        `json:"index"`
	To     string     `json:"to"`
	Info   string     `json:"info,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// BatchResult aggregates the per-recipient results of a whole batch.
// Total counts recipients, not batch items, so len(Results) == Total.
type BatchResult struct {
	Total     int          `json:"total"`
	Successes int          `json:"successes"`
	Failures  int          `json:"failures"`
	Results   []SendResult `json:"results"`
}

// ApplicationRecord is one flattened row of the append-only record log.
// Exactly one record is written per recipient attempt, success or failure.
type ApplicationRecord struct {
	Company           string
	Position          string
	Location          string
	ContractType      string
	ApplicationStatus string
	AppliedAt         string
	Website           string
	Notes             string
	EmailSent         string // "Oui" / "Non"
	SentAt            string
	Message           string
}
