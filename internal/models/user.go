package models

import "time"

type UserRole string

const (
	UserRoleStudent UserRole = "student"
	UserRoleAdmin   UserRole = "admin"
)

type User struct {
	ID                 string
	AdmissionNumber    string
	FullName           string
	Email              string
	PasswordHash       []byte
	Role               UserRole
	MustChangePassword bool
	PaymentVerified    bool
	ApplicationID      *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// PublicUser is the projection of a User that is safe to return to clients.
type PublicUser struct {
	ID                 string   `json:"id"`
	AdmissionNumber    string   `json:"admissionNumber"`
	FullName           string   `json:"fullName"`
	Email              string   `json:"email"`
	Role               UserRole `json:"role"`
	MustChangePassword bool     `json:"mustChangePassword"`
	PaymentVerified    bool     `json:"paymentVerified"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:                 u.ID,
		AdmissionNumber:    u.AdmissionNumber,
		FullName:           u.FullName,
		Email:              u.Email,
		Role:               u.Role,
		MustChangePassword: u.MustChangePassword,
		PaymentVerified:    u.PaymentVerified,
	}
}

// Session is the server-side state bound to a session cookie.
type Session struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	MustChangePassword bool      `json:"mustChangePassword"`
	IPAddress          string    `json:"ipAddress"`
	UserAgent          string    `json:"userAgent"`
	CreatedAt          time.Time `json:"createdAt"`
	ExpiresAt          time.Time `json:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
