package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "fruit", "fruit"},
		{"mixed case and digits", "Fruit2", "Fruit2"},
		{"allowed punctuation", "a.b-c_d", "a.b-c_d"},
		{"path separator", "a/b", "a_b"},
		{"parent traversal", "../etc/passwd", ".._etc_passwd"},
		{"spaces", "my bucket", "my_bucket"},
		{"unicode", "frücht", "fr_cht"},
		{"empty", "", "_"},
		{"only unsafe", "///", "___"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}
