package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/applymail/applymail/internal/models"
)

// ErrUserNotFound is returned when no user matches the lookup key.
var ErrUserNotFound = errors.New("user not found")

// UsersRepository persists user accounts in a flat users.json file and
// uploaded CVs alongside it. Every mutation is a full read-modify-write of
// the file; concurrent writers from separate processes can race, which is an
// accepted limitation of the flat-file design.
type UsersRepository struct {
	usersFile string
	cvDir     string
}

// storedUser is the on-disk shape. It differs from models.UserAccount only
// in that the encrypted SMTP password is serialized.
type storedUser struct {
	ID             string              `json:"id"`
	Email          string              `json:"email"`
	Name           string              `json:"name"`
	Picture        string              `json:"picture,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	CVPath         string              `json:"cvPath,omitempty"`
	SMTPConfigured bool                `json:"smtpConfigured"`
	SMTPPassword   string              `json:"smtpPassword,omitempty"`
	PersonalInfo   models.PersonalInfo `json:"personalInfo"`
}

// NewUsersRepository creates a users repository rooted at dataDir, creating
// the directory layout if needed.
func NewUsersRepository(dataDir string) (*UsersRepository, error) {
	cvDir := filepath.Join(dataDir, "cvs")
	if err := os.MkdirAll(cvDir, 0755); err != nil {
		return nil, fmt.Errorf("create cv storage dir: %w", err)
	}
	return &UsersRepository{
		usersFile: filepath.Join(dataDir, "users.json"),
		cvDir:     cvDir,
	}, nil
}

func (r *UsersRepository) load() ([]storedUser, error) {
	data, err := os.ReadFile(r.usersFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var users []storedUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}
	return users, nil
}

func (r *UsersRepository) save(users []storedUser) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}
	if err := os.WriteFile(r.usersFile, data, 0644); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	return nil
}

func toAccount(u storedUser) *models.UserAccount {
	return &models.UserAccount{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Picture:        u.Picture,
		CreatedAt:      u.CreatedAt,
		CVPath:         u.CVPath,
		SMTPConfigured: u.SMTPConfigured,
		SMTPPassword:   u.SMTPPassword,
		PersonalInfo:   u.PersonalInfo,
	}
}

// FindByEmail returns the user with the given email, or ErrUserNotFound.
func (r *UsersRepository) FindByEmail(email string) (*models.UserAccount, error) {
	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Email == email {
			return toAccount(u), nil
		}
	}
	return nil, ErrUserNotFound
}

// FindByID returns the user with the given id, or ErrUserNotFound.
func (r *UsersRepository) FindByID(id string) (*models.UserAccount, error) {
	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return toAccount(u), nil
		}
	}
	return nil, ErrUserNotFound
}

// Create registers a new user on first sign-in.
func (r *UsersRepository) Create(email, name, picture string) (*models.UserAccount, error) {
	users, err := r.load()
	if err != nil {
		return nil, err
	}

	u := storedUser{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Picture:   picture,
		CreatedAt: time.Now().UTC(),
	}
	users = append(users, u)

	if err := r.save(users); err != nil {
		return nil, err
	}
	return toAccount(u), nil
}

// update applies fn to the user with the given id and persists the result.
func (r *UsersRepository) update(id string, fn func(*storedUser)) (*models.UserAccount, error) {
	users, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			fn(&users[i])
			if err := r.save(users); err != nil {
				return nil, err
			}
			return toAccount(users[i]), nil
		}
	}
	return nil, ErrUserNotFound
}

// UpdatePersonalInfo replaces the user's contact details.
func (r *UsersRepository) UpdatePersonalInfo(id string, info models.PersonalInfo) (*models.UserAccount, error) {
	return r.update(id, func(u *storedUser) {
		u.PersonalInfo = info
	})
}

// SaveCV writes the uploaded CV to disk and records its path on the user.
func (r *UsersRepository) SaveCV(id string, content []byte, fileName string) (string, error) {
	cvPath := filepath.Join(r.cvDir, fmt.Sprintf("%s_%s", id, filepath.Base(fileName)))
	if err := os.WriteFile(cvPath, content, 0644); err != nil {
		return "", fmt.Errorf("write cv file: %w", err)
	}

	if _, err := r.update(id, func(u *storedUser) {
		u.CVPath = cvPath
	}); err != nil {
		return "", err
	}
	return cvPath, nil
}

// GetCVPath returns the stored CV path for the user, empty when none is set.
func (r *UsersRepository) GetCVPath(id string) (string, error) {
	u, err := r.FindByID(id)
	if err != nil {
		return "", err
	}
	return u.CVPath, nil
}

// SaveSMTPConfig stores the already-encrypted SMTP app-password.
func (r *UsersRepository) SaveSMTPConfig(id string, encryptedPassword string) error {
	_, err := r.update(id, func(u *storedUser) {
		u.SMTPPassword = encryptedPassword
		u.SMTPConfigured = true
	})
	return err
}

// SMTPConfigStatus reports whether the user has a stored app-password and
// returns it in its encrypted form.
type SMTPConfigStatus struct {
	Configured bool
	Password   string
}

// GetSMTPConfig returns the user's SMTP configuration status.
func (r *UsersRepository) GetSMTPConfig(id string) (SMTPConfigStatus, error) {
	u, err := r.FindByID(id)
	if err != nil {
		return SMTPConfigStatus{}, err
	}
	return SMTPConfigStatus{Configured: u.SMTPConfigured, Password: u.SMTPPassword}, nil
}
