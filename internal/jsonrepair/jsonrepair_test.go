package jsonrepair

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompleteTruncatedObject(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		fixed bool
	}{
		{"already valid", `{"a":1}`, `{"a":1}`, false},
		{"unclosed object", `{"a":1`, `{"a":1}`, true},
		{"unclosed nested", `{"a":{"b":[1,2`, `{"a":{"b":[1,2]}}`, true},
		{"unterminated string", `{"city":"ny`, `{"city":"ny"}`, true},
		{"dangling comma", `{"a":1,`, `{"a":1}`, true},
		{"half escape", `{"a":"x\`, `{"a":"x"}`, true},
		{"bracket inside string", `{"a":"[{"`, `{"a":"[{"}`, true},
		{"empty", ``, ``, false},
		{"not json", `hello`, `hello`, false},
		{"hopeless", `{"a":`, `{"a":`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fixed := Complete(tt.in)
			assert.Equal(t, tt.fixed, fixed)
			assert.Equal(t, tt.want, got)
		})
	}
}
