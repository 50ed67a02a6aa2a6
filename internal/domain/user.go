package domain

import (
	"net/url"
	"strings"
	"time"
)

type User struct {
	ID        string
	Email     string
	Name      string
	Avatar    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser builds the profile row for a verified identity. The name falls
// back to the local part of the email.
func NewUser(id, email, name string, avatar *string) (*User, error) {
	if id == "" {
		return nil, ErrInvalidUserID
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	if avatar != nil && *avatar == "" {
		avatar = nil
	}

	now := time.Now().UTC()
	return &User{
		ID:        id,
		Email:     email,
		Name:      name,
		Avatar:    avatar,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateProfile applies the non-nil fields.
func (u *User) UpdateProfile(name, avatar *string) error {
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return ErrEmptyName
		}
		u.Name = n
	}
	if avatar != nil {
		if err := validateAvatar(*avatar); err != nil {
			return err
		}
		a := *avatar
		u.Avatar = &a
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func validateAvatar(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidAvatar
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidAvatar
	}
	return nil
}
