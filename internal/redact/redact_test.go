package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedact_MasksContactData(t *testing.T) {
	t.Parallel()

	r := New()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "email", in: "mail me at jane.doe@example.com please", want: "mail me at [REDACTED] please"},
		{name: "phone", in: "call +1 415-555-0100 now", want: "call [REDACTED] now"},
		{name: "card", in: "card 4111 1111 1111 1111 was charged twice", want: "card [REDACTED] was charged twice"},
		{name: "plain", in: "works fine on my phone", want: "works fine on my phone"},
		{name: "empty", in: "", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, r.Redact(tc.in, "en"))
		})
	}
}

func TestRedact_Idempotent(t *testing.T) {
	t.Parallel()

	r := New()
	once := r.Redact("reach me: a@b.io or 415 555 0100", "")
	require.Equal(t, once, r.Redact(once, ""))
}

func TestStrip(t *testing.T) {
	t.Parallel()

	require.Equal(t, "mail me please", Strip("mail me [REDACTED] please"))
	require.Equal(t, "no tokens here", Strip("no tokens here"))
	require.Empty(t, Strip("[REDACTED]"))
}
