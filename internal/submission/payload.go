// Package submission hands confirmed lesson records to the external generation pipeline.
package submission

import (
	"fmt"

	"github.com/Proton-105/lessonnotes-bot/internal/state"
)

// Payload is the JSON body accepted by the generation endpoint.
type Payload struct {
	Subject            string         `json:"subject"`
	ClassLevel         string         `json:"class_level"`
	Topic              string         `json:"topic"`
	WeekEnding         string         `json:"week_ending"`
	ClassSizes         map[string]int `json:"cls_size"`
	Duration           string         `json:"duration"`
	Days               string         `json:"days"`
	Week               string         `json:"week"`
	PhoneNumber        string         `json:"phone_number"`
	Email              string         `json:"email"`
	CustomInstructions string         `json:"custom_instructions"`
}

// BuildPayload converts the collected session fields into a Payload.
// Every field except custom instructions must be present.
func BuildPayload(fields map[string]string) (Payload, error) {
	get := func(name string) (string, error) {
		value, ok := fields[name]
		if !ok {
			return "", fmt.Errorf("missing field %q", name)
		}
		return value, nil
	}

	var (
		p   Payload
		err error
	)
	for _, target := range []struct {
		name string
		dst  *string
	}{
		{state.FieldSubject, &p.Subject},
		{state.FieldClassLevel, &p.ClassLevel},
		{state.FieldTopic, &p.Topic},
		{state.FieldWeekEnding, &p.WeekEnding},
		{state.FieldDuration, &p.Duration},
		{state.FieldDays, &p.Days},
		{state.FieldWeek, &p.Week},
		{state.FieldPhoneNumber, &p.PhoneNumber},
		{state.FieldEmail, &p.Email},
	} {
		if *target.dst, err = get(target.name); err != nil {
			return Payload{}, err
		}
	}
	p.CustomInstructions = fields[state.FieldCustomInstructions]

	rawSizes, err := get(state.FieldClassSize)
	if err != nil {
		return Payload{}, err
	}
	sizes, err := state.DecodeClassSizes(rawSizes)
	if err != nil {
		return Payload{}, err
	}
	p.ClassSizes = sizes

	return p, nil
}
