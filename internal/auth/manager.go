package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// Manager handles X.com authentication
type Manager struct {
	cookieStore *CookieStore
	log         zerolog.Logger
}

// NewManager creates a new auth manager
func NewManager(cookieStore *CookieStore, log zerolog.Logger) *Manager {
	return &Manager{cookieStore: cookieStore, log: log.With().Str("component", "auth").Logger()}
}

// IsAuthenticated checks if we have valid stored credentials
func (m *Manager) IsAuthenticated() bool {
	return m.cookieStore.IsValid()
}

// Login opens a browser window for the user to log in to X.com,
// then extracts and stores the session cookies.
func (m *Manager) Login(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false), // Visible browser
		chromedp.Flag("disable-gpu", false),
		chromedp.Flag("start-maximized", true),
		// Prevent `navigator.webdriver = true`, which seems enough to trick
		// X into believing we're not using a browser automation tool.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	err := chromedp.Run(browserCtx,
		chromedp.Navigate("https://x.com/login"),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}

	m.log.Info().Msg("waiting for login to complete in the browser window")
	if err := m.waitForLogin(browserCtx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cookies, err := m.extractCookies(browserCtx)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}

	if err := m.cookieStore.Save(cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	m.log.Info().Msg("login successful, cookies saved")
	return nil
}

// waitForLogin polls until the user has successfully logged in
func (m *Manager) waitForLogin(ctx context.Context) error {
	timeout := time.After(5 * time.Minute) // Give user 5 minutes to log in
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return fmt.Errorf("login timeout exceeded")
		case <-ticker.C:
			var url string
			err := chromedp.Run(ctx,
				chromedp.Location(&url),
			)
			if err != nil {
				continue
			}

			// Landing on the home page indicates a successful login
			if url == "https://x.com/home" || url == "https://twitter.com/home" {
				cookies, err := m.extractCookies(ctx)
				if err != nil {
					continue
				}
				for _, c := range cookies {
					if c.Name == "auth_token" && c.Value != "" {
						return nil
					}
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// extractCookies gets all cookies from the browser
func (m *Manager) extractCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)

	return cookies, err
}

// Logout clears stored credentials
func (m *Manager) Logout() error {
	return m.cookieStore.Clear()
}

// GetCookies returns cookies for use in scraping: the on-disk store when it
// holds a valid session, otherwise whatever the environment provides.
func (m *Manager) GetCookies() ([]*network.Cookie, error) {
	if m.cookieStore.IsValid() {
		return m.cookieStore.GetXCookies()
	}
	if cookies := CookiesFromEnv(); cookies != nil {
		return cookies, nil
	}
	return nil, fmt.Errorf("no credentials: run `unspool login` or export %s", EnvAuthToken)
}
