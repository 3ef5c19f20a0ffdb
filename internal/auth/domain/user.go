package domain

import "time"

// User is a caller identity on the trigger surface. The engine does not do
// session management; it only keeps the externally issued Google tokens it
// needs to fetch provider records on the user's behalf.
type User struct {
	ID                 string     `json:"id" gorm:"primaryKey"`
	Email              string     `json:"email" gorm:"uniqueIndex"`
	Name               string     `json:"name"`
	GoogleAccessToken  string     `json:"-"`
	GoogleRefreshToken string     `json:"-"`
	TokenExpiry        *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HasProviderCredential reports whether any Google token is on file.
func (u *User) HasProviderCredential() bool {
	return u.GoogleAccessToken != "" || u.GoogleRefreshToken != ""
}
