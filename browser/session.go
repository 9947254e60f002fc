package browser

import (
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// LaunchOptions configures a browser session.
type LaunchOptions struct {
	// URL is opened once the page exists. Empty leaves about:blank.
	URL string

	// ExtensionPath loads an unpacked wallet extension. It requires a
	// persistent context, so UserDataDir is used as well.
	ExtensionPath string
	UserDataDir   string

	Headless bool

	// Install downloads the browser driver before starting.
	Install bool
}

// Session is a running browser with a single page.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	Page    playwright.Page
}

// Launch starts playwright, opens Chromium and navigates to opts.URL.
func Launch(opts LaunchOptions) (*Session, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	s := &Session{pw: pw}

	if opts.ExtensionPath != "" {
		args := []string{
			"--disable-extensions-except=" + opts.ExtensionPath,
			"--load-extension=" + opts.ExtensionPath,
		}
		ctx, err := pw.Chromium.LaunchPersistentContext(opts.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
			Args:     args,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to launch browser with extension: %w", err)
		}
		s.context = ctx
	} else {
		browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		s.browser = browser

		ctx, err := browser.NewContext()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create context: %w", err)
		}
		s.context = ctx
	}

	page, err := s.context.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	s.Page = page

	if opts.URL != "" {
		if _, err := page.Goto(opts.URL); err != nil {
			s.Close()
			return nil, fmt.Errorf("navigation failed: %w", err)
		}
	}

	return s, nil
}

// Close shuts the browser down and stops playwright.
func (s *Session) Close() error {
	if s.context != nil {
		s.context.Close()
	}
	if s.browser != nil {
		s.browser.Close()
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
	}
	return nil
}
