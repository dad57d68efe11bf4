package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/streakdhq/streakd/internal/date"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("calendar_day", validateCalendarDay); err != nil {
		panic(fmt.Sprintf("failed to register calendar_day validator: %v", err))
	}
	if err := Validate.RegisterValidation("streak_threshold", validateStreakThreshold); err != nil {
		panic(fmt.Sprintf("failed to register streak_threshold validator: %v", err))
	}
}

// validateCalendarDay validates that a string is a YYYY-MM-DD calendar day
func validateCalendarDay(fl validator.FieldLevel) bool {
	_, err := date.Parse(fl.Field().String())
	return err == nil
}

// validateStreakThreshold validates that an int is a usable completion percentage
func validateStreakThreshold(fl validator.FieldLevel) bool {
	v := fl.Field().Int()
	return v >= 1 && v <= 100
}

// ValidateCalendarDay validates a YYYY-MM-DD string value
func ValidateCalendarDay(value string) error {
	if _, err := date.Parse(value); err != nil {
		return fmt.Errorf("invalid day: %s (must be YYYY-MM-DD)", value)
	}
	return nil
}

// ValidateStreakThreshold validates a completion-percentage threshold
func ValidateStreakThreshold(value int) error {
	if value < 1 || value > 100 {
		return fmt.Errorf("invalid streak_threshold: %d (must be between 1 and 100)", value)
	}
	return nil
}
