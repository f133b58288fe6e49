package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCookieStore(t *testing.T) *CookieStore {
	t.Helper()
	return NewCookieStore(filepath.Join(t.TempDir(), "cookies.json"))
}

func sessionCookies(expiresIn time.Duration) []*network.Cookie {
	exp := float64(time.Now().Add(expiresIn).Unix())
	// Priority and SourceScheme must be set: storage.GetCookies always returns
	// them, and cdproto rejects their empty string forms on unmarshal.
	return []*network.Cookie{
		{Name: "auth_token", Value: "tok", Domain: ".x.com", Path: "/", Expires: exp, HTTPOnly: true, Secure: true, Priority: network.CookiePriorityMedium, SourceScheme: network.CookieSourceSchemeSecure},
		{Name: "ct0", Value: "csrf", Domain: ".x.com", Path: "/", Expires: exp, Secure: true, Priority: network.CookiePriorityMedium, SourceScheme: network.CookieSourceSchemeSecure},
		{Name: "guest_id", Value: "g", Domain: ".twitter.com", Path: "/", Expires: exp, Priority: network.CookiePriorityMedium, SourceScheme: network.CookieSourceSchemeNonSecure},
	}
}

func TestCookieStoreRoundTrip(t *testing.T) {
	cs := testCookieStore(t)
	require.NoError(t, cs.Save(sessionCookies(48*time.Hour)))

	stored, err := cs.Load()
	require.NoError(t, err)
	assert.Len(t, stored.Cookies, 3)
	assert.False(t, stored.ExpiresAt.IsZero())
	assert.True(t, cs.IsValid())

	require.NoError(t, cs.Clear())
	assert.False(t, cs.IsValid())
}

func TestIsValidExpiryMargin(t *testing.T) {
	cs := testCookieStore(t)

	// Expiring within the margin: the session would lapse mid-scrape.
	require.NoError(t, cs.Save(sessionCookies(30*time.Minute)))
	assert.False(t, cs.IsValid())

	require.NoError(t, cs.Save(sessionCookies(2*time.Hour)))
	assert.True(t, cs.IsValid())
}

func TestIsValidRequiresBothAuthCookies(t *testing.T) {
	cs := testCookieStore(t)
	cookies := sessionCookies(48 * time.Hour)
	require.NoError(t, cs.Save(cookies[:1])) // auth_token only
	assert.False(t, cs.IsValid())
}

func TestGetXCookiesFiltersDomain(t *testing.T) {
	cs := testCookieStore(t)
	require.NoError(t, cs.Save(sessionCookies(48*time.Hour)))

	xCookies, err := cs.GetXCookies()
	require.NoError(t, err)
	require.Len(t, xCookies, 2)
	for _, c := range xCookies {
		assert.Equal(t, ".x.com", c.Domain)
	}
}

func TestCookiesFromEnv(t *testing.T) {
	t.Setenv(EnvAuthToken, "")
	t.Setenv(EnvCT0, "")
	t.Setenv(EnvTwid, "")
	assert.Nil(t, CookiesFromEnv())

	t.Setenv(EnvAuthToken, "tok")
	t.Setenv(EnvCT0, "csrf")
	cookies := CookiesFromEnv()
	require.Len(t, cookies, 2)
	assert.Equal(t, "auth_token", cookies[0].Name)
	assert.Equal(t, ".x.com", cookies[0].Domain)
	assert.True(t, cookies[0].HTTPOnly)
	assert.Equal(t, "ct0", cookies[1].Name)
}
