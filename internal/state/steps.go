package state

import "strings"

// FirstStep is where a fresh or restarted session begins collecting input.
const FirstStep = StepSubject

// Definition describes one step of the flow. Field and Validate are empty for
// StepStart and StepConfirm, which collect nothing.
type Definition struct {
	Step     Step
	Field    string
	Prompt   string
	Validate func(raw string) (string, error)
}

// flow is the canonical step order. Dispatch, forward transitions and back
// navigation all derive from it.
var flow = []Definition{
	{Step: StepStart},
	{
		Step:     StepSubject,
		Field:    FieldSubject,
		Prompt:   "What's the subject?",
		Validate: required("Subject cannot be empty. Please provide a subject."),
	},
	{
		Step:     StepClassLevel,
		Field:    FieldClassLevel,
		Prompt:   "What's the class level? (e.g. Basic 4)",
		Validate: required("Class level cannot be empty. Please provide a class level."),
	},
	{
		Step:     StepTopic,
		Field:    FieldTopic,
		Prompt:   "What's the topic?",
		Validate: required("Topic cannot be empty. Please provide a topic."),
	},
	{
		Step:     StepWeekEnding,
		Field:    FieldWeekEnding,
		Prompt:   "What's the week ending date? (e.g. 21-02-2025)",
		Validate: required("Week ending cannot be empty. Please provide the week ending date."),
	},
	{
		Step:     StepClassSize,
		Field:    FieldClassSize,
		Prompt:   "What's the class size? Send each class as label:count separated by spaces (e.g. A:28 B:30)",
		Validate: ValidateClassSizes,
	},
	{
		Step:     StepDuration,
		Field:    FieldDuration,
		Prompt:   "What's the lesson duration? (e.g. 70 minutes)",
		Validate: required("Duration cannot be empty. Please provide the lesson duration."),
	},
	{
		Step:     StepDays,
		Field:    FieldDays,
		Prompt:   "Which days is the lesson taught? (e.g. Monday, Wednesday)",
		Validate: required("Days cannot be empty. Please provide the lesson days."),
	},
	{
		Step:     StepWeek,
		Field:    FieldWeek,
		Prompt:   "Which week of the term is this? (e.g. 6)",
		Validate: ValidateWeek,
	},
	{
		Step:     StepPhoneNumber,
		Field:    FieldPhoneNumber,
		Prompt:   "What's your phone number? (e.g. +233241234567)",
		Validate: ValidatePhoneNumber,
	},
	{
		Step:     StepEmail,
		Field:    FieldEmail,
		Prompt:   "What's your email address?",
		Validate: required("Email cannot be empty. Please provide your email address."),
	},
	{
		Step:     StepCustomInstructions,
		Field:    FieldCustomInstructions,
		Prompt:   "Any custom instructions for the notes? Send 'skip' if none.",
		Validate: ValidateCustomInstructions,
	},
	{Step: StepConfirm},
}

var stepIndex = func() map[Step]int {
	idx := make(map[Step]int, len(flow))
	for i, def := range flow {
		idx[def.Step] = i
	}
	return idx
}()

// Steps returns the canonical step order.
func Steps() []Step {
	steps := make([]Step, len(flow))
	for i, def := range flow {
		steps[i] = def.Step
	}
	return steps
}

// Index returns the position of s in the canonical order, or -1 if s is unknown.
func Index(s Step) int {
	if i, ok := stepIndex[s]; ok {
		return i
	}
	return -1
}

// Lookup returns the definition of s.
func Lookup(s Step) (Definition, bool) {
	i := Index(s)
	if i < 0 {
		return Definition{}, false
	}
	return flow[i], true
}

// Next returns the step after s. The terminal step is its own successor.
func Next(s Step) Step {
	i := Index(s)
	if i < 0 || i == len(flow)-1 {
		return s
	}
	return flow[i+1].Step
}

// Prev returns the step before s, clamped at StepStart.
func Prev(s Step) Step {
	i := Index(s)
	if i <= 0 {
		return StepStart
	}
	return flow[i-1].Step
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	return Index(s) >= 0
}

func (s Step) String() string {
	return string(s)
}

// Label returns a human readable step name, e.g. "Class level".
func (s Step) Label() string {
	name := strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
	if name == "cls size" {
		name = "class size"
	}
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// fieldsBefore lists the fields collected by steps strictly before s.
func fieldsBefore(s Step) []string {
	i := Index(s)
	fields := make([]string, 0, len(flow))
	for j := 0; j < i; j++ {
		if flow[j].Field != "" {
			fields = append(fields, flow[j].Field)
		}
	}
	return fields
}

// fieldNames lists every collected field in canonical order.
func fieldNames() []string {
	return fieldsBefore(StepConfirm)
}
