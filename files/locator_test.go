package files

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLLocator_AvatarURL(t *testing.T) {
	l, err := NewURLLocator("https://files.erp.test/avatars/")
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want string
	}{
		{"relative path", "acme/ana.png", "https://files.erp.test/avatars/acme/ana.png"},
		{"leading slash", "/acme/ana.png", "https://files.erp.test/avatars/acme/ana.png"},
		{"empty", "", ""},
		{"absolute url kept", "https://cdn.test/x.png", "https://cdn.test/x.png"},
		{"escaped", "acme/ana ruiz.png", "https://files.erp.test/avatars/acme/ana%20ruiz.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.AvatarURL(tt.path))
		})
	}
}

func TestNewURLLocator_Invalid(t *testing.T) {
	_, err := NewURLLocator("://bad")
	assert.Error(t, err)
}
