// Package application holds the whitelist application entity, its status
// lifecycle and the submission validation rules.
package application

import (
	"time"
)

// Status represents the application review lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid reports whether s is one of the known lifecycle values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Reviewer identifies the staff member who decided an application.
type Reviewer struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Application mirrors the `applications` table.
type Application struct {
	ID            string
	ChatID        string
	GameID        string
	CharacterName string
	BirthDate     time.Time
	Backstory     string
	Reason        string

	Status     Status
	Feedback   string
	ReviewedAt *time.Time
	ReviewedBy *Reviewer

	// Notification linkage; empty until the review message is posted.
	// Posting may fail without failing the submission.
	MessageID string
	ChannelID string

	SubmittedAt time.Time

	// Audit fields, write-only. Never exposed through Public.
	IPAddress string
	UserAgent string
}

// Age returns the applicant's age in full years at the given instant.
func (a Application) Age(at time.Time) int {
	years := at.Year() - a.BirthDate.Year()
	anniversary := a.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	return years
}

// Public is the externally visible projection of an application.
// Audit fields and notification linkage stay internal.
type Public struct {
	ID            string    `json:"id"`
	ChatID        string    `json:"chatId"`
	GameID        string    `json:"gameId"`
	CharacterName string    `json:"characterName"`
	BirthDate     string    `json:"birthDate"`
	Age           int       `json:"age"`
	Backstory     string    `json:"backstory"`
	Reason        string    `json:"reason"`
	Status        Status    `json:"status"`
	Feedback      string    `json:"feedback"`
	ReviewedAt    *string   `json:"reviewedAt"`
	ReviewedBy    *Reviewer `json:"reviewedBy"`
	SubmittedAt   string    `json:"submittedAt"`
}

// Public projects the record for API responses, computing age at read time.
func (a Application) Public() Public {
	p := Public{
		ID:            a.ID,
		ChatID:        a.ChatID,
		GameID:        a.GameID,
		CharacterName: a.CharacterName,
		BirthDate:     a.BirthDate.UTC().Format("2006-01-02"),
		Age:           a.Age(time.Now()),
		Backstory:     a.Backstory,
		Reason:        a.Reason,
		Status:        a.Status,
		Feedback:      a.Feedback,
		ReviewedBy:    a.ReviewedBy,
		SubmittedAt:   a.SubmittedAt.UTC().Format(time.RFC3339),
	}
	if a.ReviewedAt != nil {
		t := a.ReviewedAt.UTC().Format(time.RFC3339)
		p.ReviewedAt = &t
	}
	return p
}
