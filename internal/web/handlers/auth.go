package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/applymail/applymail/internal/auth"
	"github.com/applymail/applymail/internal/logger"
	"github.com/applymail/applymail/internal/models"
	"github.com/applymail/applymail/internal/repository"
)

// UsersStore defines the user persistence operations the auth handler needs.
type UsersStore interface {
	FindByEmail(email string) (*models.UserAccount, error)
	FindByID(id string) (*models.UserAccount, error)
	Create(email, name, picture string) (*models.UserAccount, error)
	UpdatePersonalInfo(id string, info models.PersonalInfo) (*models.UserAccount, error)
	SaveCV(id string, content []byte, fileName string) (string, error)
	SaveSMTPConfig(id string, encryptedPassword string) error
	GetSMTPConfig(id string) (repository.SMTPConfigStatus, error)
}

// Encrypter seals an SMTP app-password before storage.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// AuthHandler handles sign-in and profile management.
type AuthHandler struct {
	users  UsersStore
	google auth.GoogleVerifier
	tokens *auth.TokenManager
	cipher Encrypter
	log    *logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users UsersStore, google auth.GoogleVerifier, tokens *auth.TokenManager, cipher Encrypter) *AuthHandler {
	return &AuthHandler{
		users:  users,
		google: google,
		tokens: tokens,
		cipher: cipher,
		log:    logger.Get(),
	}
}

// Google exchanges a Google sign-in credential for a service bearer token,
// registering the user on first sign-in.
// POST /api/auth/google
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Credential string `json:"credential"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Credential == "" {
		http.Error(w, `{"error":"credential is required"}`, http.StatusBadRequest)
		return
	}

	identity, err := h.google.Verify(r.Context(), payload.Credential)
	if err != nil {
		h.log.Warn().Err(err).Msg("google sign-in rejected")
		http.Error(w, `{"error":"authentication failed"}`, http.StatusBadRequest)
		return
	}

	user, err := h.users.FindByEmail(identity.Email)
	if err != nil {
		user, err = h.users.Create(identity.Email, identity.Name, identity.Picture)
		if err != nil {
			h.log.Error().Err(err).Msg("user creation failed")
			writeError(w, http.StatusInternalServerError, "failed to create user")
			return
		}
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.log.Error().Err(err).Msg("token issue failed")
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Token string              `json:"token"`
		User  *models.UserAccount `json:"user"`
	}{
		Token: token,
		User:  user,
	})
}

// GetProfile returns the authenticated user's account.
// GET /api/auth/profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"access token required"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.users.FindByEmail(claims.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// UpdateProfile replaces the user's contact details.
// PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"access token required"}`, http.StatusUnauthorized)
		return
	}

	var info models.PersonalInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		http.Error(w, `{"error":"invalid request payload"}`, http.StatusBadRequest)
		return
	}

	user, err := h.users.UpdatePersonalInfo(claims.ID, info)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// stripDataURL removes an optional "data:<type>;base64," prefix from
// browser uploads.
func stripDataURL(content string) string {
	if idx := strings.Index(content, ";base64,"); idx != -1 && strings.HasPrefix(content, "data:") {
		return content[idx+len(";base64,"):]
	}
	return content
}

// UploadCV stores the user's CV from a base64 upload.
// POST /api/auth/upload-cv
func (h *AuthHandler) UploadCV(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"access token required"}`, http.StatusUnauthorized)
		return
	}

	var payload struct {
		FileName string `json:"fileName"`
		Content  string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.FileName == "" || payload.Content == "" {
		http.Error(w, `{"error":"cv file is required"}`, http.StatusBadRequest)
		return
	}

	content, err := base64.StdEncoding.DecodeString(stripDataURL(payload.Content))
	if err != nil {
		http.Error(w, `{"error":"cv content is not valid base64"}`, http.StatusBadRequest)
		return
	}

	cvPath, err := h.users.SaveCV(claims.ID, content, payload.FileName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "cv uploaded",
		"cvPath":  cvPath,
	})
}

// SaveSMTPConfig encrypts and stores the user's SMTP app-password.
// POST /api/auth/smtp-config
func (h *AuthHandler) SaveSMTPConfig(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"access token required"}`, http.StatusUnauthorized)
		return
	}

	var payload struct {
		SMTPPassword string `json:"smtpPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.SMTPPassword == "" {
		http.Error(w, `{"error":"smtp password is required"}`, http.StatusBadRequest)
		return
	}

	encrypted, err := h.cipher.Encrypt(payload.SMTPPassword)
	if err != nil {
		h.log.Error().Err(err).Msg("smtp password encryption failed")
		writeError(w, http.StatusInternalServerError, "failed to store smtp config")
		return
	}

	if err := h.users.SaveSMTPConfig(claims.ID, encrypted); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":    "smtp configuration saved",
		"configured": true,
	})
}

// GetSMTPConfig reports whether the user has an app-password on file. The
// password itself is never returned.
// GET /api/auth/smtp-config
func (h *AuthHandler) GetSMTPConfig(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"access token required"}`, http.StatusUnauthorized)
		return
	}

	status, err := h.users.GetSMTPConfig(claims.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load smtp config")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"configured": status.Configured})
}
