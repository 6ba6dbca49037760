package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_DisplayName(t *testing.T) {
	testCases := []struct {
		name string
		user *User
		want string
	}{
		{name: "nil", user: nil, want: ""},
		{name: "full name", user: &User{FirstName: "Ama", LastName: "Mensah"}, want: "Ama Mensah"},
		{name: "first name only", user: &User{FirstName: "Kofi"}, want: "Kofi"},
		{name: "username fallback", user: &User{Username: "kofi_m"}, want: "@kofi_m"},
		{name: "nothing known", user: &User{}, want: ""},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.user.DisplayName())
		})
	}
}
