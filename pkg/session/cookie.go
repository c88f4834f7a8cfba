// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authd.
//
// go-authd is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package session

import (
	"net/http"
	"time"
)

// DefaultCookieName is the session cookie name.
const DefaultCookieName = "token"

// CookiePolicy computes the session cookie attributes. The attributes are
// derived per request from the remember-me choice and never mutated after
// construction.
type CookiePolicy struct {
	// Name is the cookie name. Defaults to DefaultCookieName.
	Name string

	// Domain scopes the cookie. Empty uses the request host.
	Domain string

	// Secure marks the cookie HTTPS-only. Disable only for local
	// development behind plain HTTP.
	Secure bool
}

// cookieName returns the configured or default cookie name.
func (p CookiePolicy) cookieName() string {
	if p.Name == "" {
		return DefaultCookieName
	}
	return p.Name
}

// Session builds the cookie carrying a session token. With remember-me the
// cookie persists for the token lifetime; otherwise it is a session cookie
// that dies with the browser.
func (p CookiePolicy) Session(token string, remember bool, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     p.cookieName(),
		Value:    token,
		Path:     "/",
		Domain:   p.Domain,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	if remember {
		cookie.MaxAge = int(ttl.Seconds())
	}
	return cookie
}

// Clear builds an expired cookie that removes the session from the browser.
func (p CookiePolicy) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     p.cookieName(),
		Value:    "",
		Path:     "/",
		Domain:   p.Domain,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	}
}
