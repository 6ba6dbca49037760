package state

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/Proton-105/lessonnotes-bot/internal/errors"
)

// SkipKeyword lets a user leave the custom instructions empty.
const SkipKeyword = "skip"

const (
	phonePrefix = "+233"
	phoneLength = 13
)

// ClassSizes maps a class label to its pupil count.
type ClassSizes map[string]int

// ParseClassSizes parses space separated label:count pairs such as "A:28 B:30".
// Every count must be a positive integer. A repeated label keeps its last count.
func ParseClassSizes(raw string) (ClassSizes, error) {
	pairs := strings.Fields(raw)
	if len(pairs) == 0 {
		return nil, apperrors.NewValidationError("Class size cannot be empty. Please send label:count pairs, e.g. A:28 B:30.")
	}

	sizes := make(ClassSizes, len(pairs))
	for _, pair := range pairs {
		label, count, ok := strings.Cut(pair, ":")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("%q is not a label:count pair. Please use the format A:28 B:30.", pair))
		}

		n, err := strconv.Atoi(count)
		if err != nil || n <= 0 {
			return nil, apperrors.NewValidationError(fmt.Sprintf("Class %s needs a positive whole number of pupils.", label))
		}
		sizes[label] = n
	}

	return sizes, nil
}

// DecodeClassSizes reads the stored form produced by ValidateClassSizes.
func DecodeClassSizes(stored string) (ClassSizes, error) {
	var sizes ClassSizes
	if err := json.Unmarshal([]byte(stored), &sizes); err != nil {
		return nil, fmt.Errorf("decode class sizes: %w", err)
	}
	return sizes, nil
}

// ValidateClassSizes parses raw and returns its JSON encoding for storage.
func ValidateClassSizes(raw string) (string, error) {
	sizes, err := ParseClassSizes(raw)
	if err != nil {
		return "", err
	}

	encoded, err := json.Marshal(sizes)
	if err != nil {
		return "", fmt.Errorf("encode class sizes: %w", err)
	}
	return string(encoded), nil
}

// ValidateWeek accepts a non-empty string of digits.
func ValidateWeek(raw string) (string, error) {
	week := strings.TrimSpace(raw)
	if week == "" || !isDigits(week) {
		return "", apperrors.NewValidationError("Week must be a number, e.g. 6.")
	}
	return week, nil
}

// ValidatePhoneNumber accepts Ghanaian numbers in the +233XXXXXXXXX form.
func ValidatePhoneNumber(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	if len(phone) != phoneLength || !strings.HasPrefix(phone, phonePrefix) || !isDigits(phone[1:]) {
		return "", apperrors.NewValidationError("Please send a valid phone number starting with +233, e.g. +233241234567.")
	}
	return phone, nil
}

// ValidateCustomInstructions accepts any text. "skip" in any case stores an empty value.
func ValidateCustomInstructions(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if strings.EqualFold(text, SkipKeyword) {
		return "", nil
	}
	if text == "" {
		return "", apperrors.NewValidationError("Custom instructions cannot be empty. Send 'skip' if you have none.")
	}
	return text, nil
}

func required(message string) func(string) (string, error) {
	return func(raw string) (string, error) {
		value := strings.TrimSpace(raw)
		if value == "" {
			return "", apperrors.NewValidationError(message)
		}
		return value, nil
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
