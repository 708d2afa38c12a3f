package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailCleaner(t *testing.T) {
	cleaner := NewEmailCleaner()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "signature block removed",
			in:   "Meeting moved to 3 PM.\n--\nJohn Smith\nSenior Engineer\nSent from my iPhone",
			want: "Meeting moved to 3 PM.",
		},
		{
			name: "reply header removed",
			in:   "Sounds good to me.\nOn Mon, Jan 5, 2026, Jane Doe <jane@company.com> wrote:\n\nSee below",
			want: "Sounds good to me.\nSee below",
		},
		{
			name: "forwarded headers removed",
			in:   "---------- Forwarded message ---------\nFrom: bob@company.com\nTo: alice@company.com\nSubject: budget\nDate: Monday\nThe actual content.",
			want: "The actual content.",
		},
		{
			name: "blank lines collapsed",
			in:   "First line.\n\n\n   \nSecond line.",
			want: "First line.\nSecond line.",
		},
		{
			name: "clean text untouched",
			in:   "Just a normal email body with nothing to strip.",
			want: "Just a normal email body with nothing to strip.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleaner.Clean(tt.in))
		})
	}
}
