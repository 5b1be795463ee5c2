package validation

import (
	"time"
)

// ValidateDate validates a calendar date in "YYYY-MM-DD" form
func ValidateDate(date string) error {
	if date == "" {
		return NewError("date is required")
	}

	_, err := time.Parse("2006-01-02", date)
	if err != nil {
		return NewError("invalid date, expected YYYY-MM-DD")
	}

	return nil
}

// ValidateTargetMonth validates a 1-12 month number
func ValidateTargetMonth(month int) error {
	if month < 1 || month > 12 {
		return NewError("target month must be between 1 and 12")
	}
	return nil
}

// ValidateYear rejects years outside a sane planning range
func ValidateYear(year int) error {
	if year < 2000 || year > 2200 {
		return NewError("year is out of range")
	}
	return nil
}
