package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/unspool/internal/config"
)

// expiryMargin guards against a session lapsing mid-scrape: cookies this
// close to expiry are treated as already invalid, so the caller falls back to
// env credentials or asks for a fresh login instead of failing halfway
// through a thread.
const expiryMargin = time.Hour

// CookieStore persists X.com session cookies as a JSON file.
type CookieStore struct {
	path string
}

// StoredCookies is the on-disk shape. ExpiresAt is the earliest expiry among
// the auth cookies, precomputed at save time so validity checks stay cheap.
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path}
}

// DefaultCookieStorePath returns the default path for cookie storage
func DefaultCookieStorePath() (string, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cookies.json"), nil
}

// Save persists cookies to disk. The file is plaintext (0600); whoever can
// read the user's home directory can read their browser profile anyway.
func (cs *CookieStore) Save(cookies []*network.Cookie) error {
	dir := filepath.Dir(cs.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	// The session is only as good as the first auth cookie to lapse.
	var earliestExpiry time.Time
	for _, c := range cookies {
		if c.Name == "auth_token" || c.Name == "ct0" {
			exp := time.Unix(int64(c.Expires), 0)
			if earliestExpiry.IsZero() || exp.Before(earliestExpiry) {
				earliestExpiry = exp
			}
		}
	}

	stored := StoredCookies{
		Cookies:    cookies,
		CapturedAt: time.Now(),
		ExpiresAt:  earliestExpiry,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk
func (cs *CookieStore) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// IsValid reports whether the stored session can carry a full scrape: both
// auth cookies present and not expiring within the margin.
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}

	if time.Now().Add(expiryMargin).After(stored.ExpiresAt) {
		return false
	}

	hasAuthToken := false
	hasCT0 := false
	for _, c := range stored.Cookies {
		if c.Name == "auth_token" {
			hasAuthToken = true
		}
		if c.Name == "ct0" {
			hasCT0 = true
		}
	}

	return hasAuthToken && hasCT0
}

// Clear removes stored cookies
func (cs *CookieStore) Clear() error {
	return os.Remove(cs.path)
}

// GetXCookies returns only the x.com related cookies for use in scraping
func (cs *CookieStore) GetXCookies() ([]*network.Cookie, error) {
	stored, err := cs.Load()
	if err != nil {
		return nil, err
	}

	var xCookies []*network.Cookie
	for _, c := range stored.Cookies {
		if c.Domain == ".x.com" || c.Domain == "x.com" {
			xCookies = append(xCookies, c)
		}
	}

	return xCookies, nil
}
