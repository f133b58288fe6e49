package auth

import (
	"os"

	"github.com/chromedp/cdproto/network"
)

// Environment variables recognized for cookie-based auth. auth_token and ct0
// are required by X for any logged-in page; twid is optional.
const (
	EnvAuthToken = "X_AUTH_TOKEN"
	EnvCT0       = "X_CT0"
	EnvTwid      = "X_TWID"
)

// CookiesFromEnv builds session cookies from environment variables, for users
// who export their browser cookies instead of using the interactive login.
// Returns nil if X_AUTH_TOKEN is not set.
func CookiesFromEnv() []*network.Cookie {
	token := os.Getenv(EnvAuthToken)
	if token == "" {
		return nil
	}

	cookies := []*network.Cookie{
		{Name: "auth_token", Value: token, Domain: ".x.com", Path: "/", HTTPOnly: true, Secure: true},
	}
	if ct0 := os.Getenv(EnvCT0); ct0 != "" {
		cookies = append(cookies, &network.Cookie{Name: "ct0", Value: ct0, Domain: ".x.com", Path: "/", Secure: true})
	}
	if twid := os.Getenv(EnvTwid); twid != "" {
		cookies = append(cookies, &network.Cookie{Name: "twid", Value: twid, Domain: ".x.com", Path: "/", Secure: true})
	}
	return cookies
}
