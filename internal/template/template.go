// Package template builds the application email body from the job details
// and the applicant's profile.
package template

import (
	"fmt"
	"strings"

	"github.com/applymail/applymail/internal/models"
)

// DefaultPosition is used when the request carries no job title.
const DefaultPosition = "Développeur Full-Stack"

// Defaults are the service-level fallbacks for the applicant identity,
// resolved from configuration at startup.
type Defaults struct {
	Name      string
	Email     string
	Phone     string
	LinkedIn  string
	Portfolio string
}

// Email is a rendered message body.
type Email struct {
	Subject string
	Text    string
	HTML    string
}

// resolveApplicant fills empty applicant fields from the fallbacks, in order.
func resolveApplicant(applicant *models.Applicant, defaults Defaults) models.Applicant {
	resolved := models.Applicant{}
	if applicant != nil {
		resolved = *applicant
	}
	if resolved.Name == "" {
		resolved.Name = defaults.Name
	}
	if resolved.Email == "" {
		resolved.Email = defaults.Email
	}
	if resolved.Phone == "" {
		resolved.Phone = defaults.Phone
	}
	if resolved.LinkedIn == "" {
		resolved.LinkedIn = defaults.LinkedIn
	}
	if resolved.Portfolio == "" {
		resolved.Portfolio = defaults.Portfolio
	}
	return resolved
}

func buildSignature(a models.Applicant) string {
	lines := []string{a.Name}
	for _, line := range []string{a.Email, a.Phone, a.LinkedIn, a.Portfolio} {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// Build renders the cover-letter email for one application.
func Build(company, position string, applicant *models.Applicant, defaults Defaults) Email {
	if position == "" {
		position = DefaultPosition
	}
	resolved := resolveApplicant(applicant, defaults)

	subject := fmt.Sprintf("Candidature – %s", position)
	intro := "Madame, Monsieur,"

	opening := fmt.Sprintf("Je me permets de vous adresser ma candidature pour le poste de %s.", position)
	if company != "" {
		opening = fmt.Sprintf("Je me permets de vous adresser ma candidature pour le poste de %s au sein de %s.", position, company)
	}

	paragraphs := []string{
		opening,
		"Diplômé de YouCode en partenariat avec l’Université Mohammed VI Polytechnique, j’ai récemment consolidé mon expérience au sein de NJT-GROUP.",
		"Je suis motivé à rejoindre votre entreprise afin de mettre à profit mes compétences techniques ainsi que mon sens de l’innovation pour contribuer à vos projets.",
		fmt.Sprintf("Vous trouverez ci-joint mon CV ainsi que mon portfolio présentant mes réalisations : %s.", resolved.Portfolio),
		"Je serais honoré d’échanger avec vous afin de vous exposer plus en détail ma motivation et la valeur ajoutée que je peux apporter à votre équipe.",
	}

	closing := "Je vous prie de croire, Madame, Monsieur, en l’expression de mes salutations distinguées."
	signature := buildSignature(resolved)

	textParts := append([]string{intro, ""}, paragraphs...)
	textParts = append(textParts, "", closing, "", signature)
	text := strings.Join(textParts, "\n")

	var htmlParagraphs strings.Builder
	for _, p := range paragraphs {
		htmlParagraphs.WriteString(fmt.Sprintf("    <p>%s</p>\n", p))
	}

	html := fmt.Sprintf(`<!DOCTYPE html>
<html lang="fr">
  <body>
    <p>%s</p>
%s    <p>%s</p>
    <p style="white-space: pre-line;">%s</p>
  </body>
</html>`, intro, htmlParagraphs.String(), closing, signature)

	return Email{
		Subject: subject,
		Text:    text,
		HTML:    html,
	}
}
