package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInbound(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		frame   string
		want    string
		wantErr bool
	}{
		{name: "valid", frame: `{"content":"hello"}`, want: "hello"},
		{name: "extra fields ignored", frame: `{"content":"hi","author":"spoofed"}`, want: "hi"},
		{name: "not json", frame: `hello`, wantErr: true},
		{name: "wrong type", frame: `{"content":42}`, wantErr: true},
		{name: "array", frame: `["content"]`, wantErr: true},
		{name: "missing content", frame: `{"text":"hello"}`, wantErr: true},
		{name: "empty content", frame: `{"content":""}`, wantErr: true},
		{name: "whitespace content", frame: `{"content":" \t\n "}`, wantErr: true},
		{name: "too long", frame: `{"content":"` + strings.Repeat("a", MaxContentBytes+1) + `"}`, wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in, err := ParseInbound([]byte(tc.frame))
			if tc.wantErr {
				require.ErrorIs(t, err, ErrBadFrame)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, in.Content)
		})
	}
}
