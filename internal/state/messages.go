package state

import (
	"fmt"
	"sort"
	"strings"
)

const (
	msgWelcome        = "Welcome to the Lesson Notes Bot! Let's prepare your lesson notes."
	msgCanceled       = "Canceled. Send /start whenever you want to begin again."
	msgCannotGoBack   = "You can't go back any further."
	msgConfirmPrompt  = "Send 'yes' to confirm or 'no' to cancel."
	msgConfirmInvalid = "Please answer 'yes' to confirm or 'no' to cancel."
	msgConfirmStale   = "This summary is no longer current."
	msgSubmitted      = "Lesson notes are being generated. You will receive a notification once they are ready."
	msgSubmitFailed   = "Failed to generate lesson notes. Please try again later."
	msgNoSession      = "No lesson notes in progress. Send /start to begin."
	msgLocked         = "Still working on your previous message, please wait a moment."
)

// Summary renders every collected field for confirmation.
func Summary(fields map[string]string) string {
	var b strings.Builder
	b.WriteString("Please confirm your lesson details:\n\n")
	writeFields(&b, fields)
	b.WriteString("\n")
	b.WriteString(msgConfirmPrompt)
	return b.String()
}

// Status describes where the session stands and what it has collected so far.
func Status(sess *Session) string {
	if sess == nil || !sess.Current.Valid() || sess.Current == StepStart {
		return msgNoSession
	}

	var b strings.Builder
	if sess.Current == StepConfirm {
		b.WriteString("All details are collected and waiting for your confirmation.")
	} else {
		fmt.Fprintf(&b, "You're on step %d of %d: %s.", Index(sess.Current), collectionSteps(), sess.Current.Label())
	}

	if len(sess.Fields) > 0 {
		b.WriteString("\n\nCollected so far:\n")
		writeFields(&b, sess.Fields)
	}
	return b.String()
}

func writeFields(b *strings.Builder, fields map[string]string) {
	for _, def := range flow {
		if def.Field == "" {
			continue
		}
		value, ok := fields[def.Field]
		if !ok {
			continue
		}
		fmt.Fprintf(b, "%s: %s\n", def.Step.Label(), displayValue(def.Field, value))
	}
}

func displayValue(field, value string) string {
	switch field {
	case FieldClassSize:
		sizes, err := DecodeClassSizes(value)
		if err != nil {
			return value
		}
		labels := make([]string, 0, len(sizes))
		for label := range sizes {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		parts := make([]string, 0, len(labels))
		for _, label := range labels {
			parts = append(parts, fmt.Sprintf("%s: %d", label, sizes[label]))
		}
		return strings.Join(parts, ", ")
	case FieldCustomInstructions:
		if value == "" {
			return "None"
		}
	}
	return value
}

func collectionSteps() int {
	return len(flow) - 2
}
