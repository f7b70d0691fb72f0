package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidScopeName(t *testing.T) {
	valid := []string{
		"a", "openid", "reports.read", "profile:read", "email:read:e2e123", "a_b-c.d:scope2",
		"a" + strings.Repeat("x", 62) + "b",
	}
	for _, v := range valid {
		assert.True(t, ValidScopeName(v), v)
	}

	invalid := []string{
		"", ":lead", "trail:", "bad space", "UPPER", "semicolon;hack",
		"a" + strings.Repeat("x", 63) + "b",
	}
	for _, v := range invalid {
		assert.False(t, ValidScopeName(v), v)
	}
}

func TestScopeList(t *testing.T) {
	assert.NoError(t, ScopeList("openid  profile email"))
	assert.NoError(t, ScopeList(""))
	assert.Error(t, ScopeList("openid Profile"))
}

func TestRedirectURI(t *testing.T) {
	for _, ok := range []string{"https://app.example/cb", "http://localhost:3000/callback?x=1", "com.example.app://oauth"} {
		assert.NoError(t, RedirectURI(ok), ok)
	}
	assert.ErrorIs(t, RedirectURI("/cb"), ErrRedirectNotAbsolute)
	assert.ErrorIs(t, RedirectURI("app.example/cb"), ErrRedirectNotAbsolute)
	assert.ErrorIs(t, RedirectURI("https://app.example/cb#frag"), ErrRedirectFragment)
	assert.Error(t, RedirectURI("https://app example/%zz"))
}
