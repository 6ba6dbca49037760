package state

import "time"

// Step is one canonical stage of the lesson notes collection flow.
type Step string

const (
	StepStart              Step = "START"
	StepSubject            Step = "SUBJECT"
	StepClassLevel         Step = "CLASS_LEVEL"
	StepTopic              Step = "TOPIC"
	StepWeekEnding         Step = "WEEK_ENDING"
	StepClassSize          Step = "CLS_SIZE"
	StepDuration           Step = "DURATION"
	StepDays               Step = "DAYS"
	StepWeek               Step = "WEEK"
	StepPhoneNumber        Step = "PHONE_NUMBER"
	StepEmail              Step = "EMAIL"
	StepCustomInstructions Step = "CUSTOM_INSTRUCTIONS"
	StepConfirm            Step = "CONFIRM"
)

// Field names under which collected values are stored and sent to the generator.
const (
	FieldSubject            = "subject"
	FieldClassLevel         = "class_level"
	FieldTopic              = "topic"
	FieldWeekEnding         = "week_ending"
	FieldClassSize          = "cls_size"
	FieldDuration           = "duration"
	FieldDays               = "days"
	FieldWeek               = "week"
	FieldPhoneNumber        = "phone_number"
	FieldEmail              = "email"
	FieldCustomInstructions = "custom_instructions"
)

// Session is the persisted progress of one chat through the flow.
type Session struct {
	ChatID   int64
	Current  Step
	Previous Step
	// Fields holds exactly the values of the steps before Current.
	Fields    map[string]string
	UpdatedAt time.Time
}

// NewSession returns a fresh session positioned at the first collection step.
func NewSession(chatID int64) *Session {
	return &Session{
		ChatID:   chatID,
		Current:  FirstStep,
		Previous: StepStart,
		Fields:   make(map[string]string),
	}
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	clone := *s
	clone.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		clone.Fields[k] = v
	}
	return &clone
}
