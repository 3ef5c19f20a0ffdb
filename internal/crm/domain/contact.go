package domain

import "time"

// Contact is a CRM-tracked person. The sync engine reads contacts to build
// its matching directory and only ever writes back last_contacted_at.
type Contact struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	Name            string     `json:"name" gorm:"not null"`
	PrimaryEmail    string     `json:"primary_email"`
	Aliases         []string   `json:"aliases" gorm:"serializer:json"`
	AccountID       string     `json:"account_id" gorm:"index"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Account groups contacts under one organization.
type Account struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	Name             string     `json:"name" gorm:"not null"`
	PrimaryContactID string     `json:"primary_contact_id,omitempty"`
	LastContactedAt  *time.Time `json:"last_contacted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Emails returns every address the contact can be matched on, primary first.
func (c *Contact) Emails() []string {
	emails := make([]string, 0, len(c.Aliases)+1)
	if c.PrimaryEmail != "" {
		emails = append(emails, c.PrimaryEmail)
	}
	for _, alias := range c.Aliases {
		if alias != "" {
			emails = append(emails, alias)
		}
	}
	return emails
}

// FirstName returns the leading word of the contact's full name.
func (c *Contact) FirstName() string {
	for i := 0; i < len(c.Name); i++ {
		if c.Name[i] == ' ' {
			return c.Name[:i]
		}
	}
	return c.Name
}
