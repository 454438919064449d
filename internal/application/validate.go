package application

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MinimumAge is the youngest accepted applicant age in full years.
const MinimumAge = 16

// SubmitForm carries the raw submission fields before validation.
type SubmitForm struct {
	ChatID        string `json:"chatId"`
	GameID        string `json:"gameId"`
	CharacterName string `json:"characterName"`
	BirthDate     string `json:"birthDate"`
	Backstory     string `json:"backstory"`
	Reason        string `json:"reason"`
}

// FieldError describes one failing form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every failing field of a submission so the
// caller can surface per-field feedback in one round trip.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "invalid submission: " + strings.Join(names, ", ")
}

// Validate checks every field and returns a ValidationError listing all
// failures, or the parsed birth date on success.
func (f SubmitForm) Validate(now time.Time) (time.Time, error) {
	var verr ValidationError

	checkLen := func(field, value string, min, max int) {
		n := utf8.RuneCountInString(strings.TrimSpace(value))
		if n < min || n > max {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   field,
				Message: fmt.Sprintf("must be between %d and %d characters", min, max),
			})
		}
	}

	checkLen("chatId", f.ChatID, 2, 50)
	checkLen("gameId", f.GameID, 5, 100)
	checkLen("characterName", f.CharacterName, 2, 100)

	birth, err := time.Parse("2006-01-02", strings.TrimSpace(f.BirthDate))
	if err != nil {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   "birthDate",
			Message: "must be a valid date in YYYY-MM-DD format",
		})
	} else if (Application{BirthDate: birth}).Age(now) < MinimumAge {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   "birthDate",
			Message: fmt.Sprintf("applicants must be at least %d years old", MinimumAge),
		})
	}

	checkLen("backstory", f.Backstory, 100, 2000)
	checkLen("reason", f.Reason, 10, 1000)

	if len(verr.Fields) > 0 {
		return time.Time{}, &verr
	}
	return birth, nil
}
