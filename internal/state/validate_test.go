package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Proton-105/lessonnotes-bot/internal/errors"
)

func TestParseClassSizes(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		want    ClassSizes
		wantErr bool
	}{
		{name: "two classes", raw: "A:28 B:30", want: ClassSizes{"A": 28, "B": 30}},
		{name: "extra whitespace", raw: "  A:28\tB:30  ", want: ClassSizes{"A": 28, "B": 30}},
		{name: "duplicate label keeps last", raw: "A:28 A:31", want: ClassSizes{"A": 31}},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "missing colon", raw: "A28", wantErr: true},
		{name: "missing label", raw: ":28", wantErr: true},
		{name: "non numeric count", raw: "A:x", wantErr: true},
		{name: "zero count", raw: "A:0", wantErr: true},
		{name: "negative count", raw: "A:28 B:-1", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseClassSizes(tc.raw)
			if tc.wantErr {
				require.Error(t, err)

				var appErr *apperrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, apperrors.CodeValidation, appErr.Code)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidateClassSizes_StoresJSONObject(t *testing.T) {
	stored, err := ValidateClassSizes("B:30 A:28")
	require.NoError(t, err)
	assert.JSONEq(t, `{"A":28,"B":30}`, stored)

	decoded, err := DecodeClassSizes(stored)
	require.NoError(t, err)
	assert.Equal(t, ClassSizes{"A": 28, "B": 30}, decoded)

	_, err = DecodeClassSizes("{'A': 28}")
	assert.Error(t, err)
}

func TestValidators(t *testing.T) {
	testCases := []struct {
		name     string
		validate func(string) (string, error)
		raw      string
		want     string
		wantErr  bool
	}{
		{name: "week digits", validate: ValidateWeek, raw: " 12 ", want: "12"},
		{name: "week empty", validate: ValidateWeek, raw: "", wantErr: true},
		{name: "week signed", validate: ValidateWeek, raw: "-3", wantErr: true},
		{name: "week decimal", validate: ValidateWeek, raw: "1.5", wantErr: true},
		{name: "phone valid", validate: ValidatePhoneNumber, raw: "+233241234567", want: "+233241234567"},
		{name: "phone trimmed", validate: ValidatePhoneNumber, raw: " +233241234567\n", want: "+233241234567"},
		{name: "phone too short", validate: ValidatePhoneNumber, raw: "+23324123456", wantErr: true},
		{name: "phone too long", validate: ValidatePhoneNumber, raw: "+2332412345678", wantErr: true},
		{name: "phone local form", validate: ValidatePhoneNumber, raw: "0241234567123", wantErr: true},
		{name: "phone with letters", validate: ValidatePhoneNumber, raw: "+23324123456a", wantErr: true},
		{name: "custom skip", validate: ValidateCustomInstructions, raw: "SKIP", want: ""},
		{name: "custom text", validate: ValidateCustomInstructions, raw: " Use local examples ", want: "Use local examples"},
		{name: "custom empty", validate: ValidateCustomInstructions, raw: " ", wantErr: true},
		{name: "required trims", validate: required("empty"), raw: "  Science ", want: "Science"},
		{name: "required empty", validate: required("empty"), raw: "\t", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.validate(tc.raw)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStepOrder(t *testing.T) {
	assert.Equal(t, []Step{
		StepStart, StepSubject, StepClassLevel, StepTopic, StepWeekEnding, StepClassSize,
		StepDuration, StepDays, StepWeek, StepPhoneNumber, StepEmail, StepCustomInstructions,
		StepConfirm,
	}, Steps())

	assert.Equal(t, StepClassLevel, Next(StepSubject))
	assert.Equal(t, StepConfirm, Next(StepConfirm))
	assert.Equal(t, StepStart, Prev(StepSubject))
	assert.Equal(t, StepStart, Prev(StepStart))
	assert.Equal(t, -1, Index(Step("UNKNOWN")))
	assert.Equal(t, "Class size", StepClassSize.Label())

	for _, step := range Steps() {
		def, ok := Lookup(step)
		require.True(t, ok)
		if step == StepStart || step == StepConfirm {
			assert.Empty(t, def.Field)
			continue
		}
		assert.NotEmpty(t, def.Field, step)
		assert.NotEmpty(t, def.Prompt, step)
		assert.NotNil(t, def.Validate, step)
	}
}
