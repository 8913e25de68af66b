package models

import "time"

// PersonalInfo holds the contact details a user exposes in applications.
type PersonalInfo struct {
	Phone     string `json:"phone"`
	LinkedIn  string `json:"linkedin"`
	Portfolio string `json:"portfolio"`
}

// UserAccount is a registered user, created on first Google sign-in.
// SMTPPassword holds the AES-GCM encrypted app-password; it is decrypted on
// demand and never returned over the API.
type UserAccount struct {
	ID             string       `json:"id"`
	Email          string       `json:"email"`
	Name           string       `json:"name"`
	Picture        string       `json:"picture,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	CVPath         string       `json:"cvPath,omitempty"`
	SMTPConfigured bool         `json:"smtpConfigured"`
	SMTPPassword   string       `json:"-"`
	PersonalInfo   PersonalInfo `json:"personalInfo"`
}
