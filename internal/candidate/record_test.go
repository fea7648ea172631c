package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasEmail(t *testing.T) {
	empty := ""
	email := "jean@example.com"

	assert.False(t, (&Record{}).HasEmail())
	assert.False(t, (&Record{Email: &empty}).HasEmail())
	assert.True(t, (&Record{Email: &email}).HasEmail())
}

func TestFullName(t *testing.T) {
	jean := "Jean"
	dupont := "Dupont"

	tests := []struct {
		name   string
		record Record
		want   string
	}{
		{name: "both parts", record: Record{GivenName: &jean, FamilyName: &dupont}, want: "Jean Dupont"},
		{name: "family only", record: Record{FamilyName: &dupont}, want: "Dupont"},
		{name: "given only", record: Record{GivenName: &jean}, want: "Jean"},
		{name: "neither", record: Record{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.FullName())
		})
	}
}
