package bcnn

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/cookiejar"
	"strconv"
	"time"

	"bcnn-backend/lib/htmlutil"
	"bcnn-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

const sessionTTL = 1800 * time.Second

// Drupal's autologout module sets this cookie on successful login,
// its value is the unix second the session started
const sessionCookie = "Drupal.visitor.autologout_login"

const loginPath = "/node/4?destination=/node/4"

func (c *Client) sessionExpired() bool {
	if c.sessionStart.IsZero() {
		return true
	}
	return timezone.Now().After(c.sessionStart.Add(sessionTTL))
}

// ensureSession authenticates lazily: the first call and every call
// after expiry perform the login handshake, calls in between reuse
// the existing cookie jar untouched.
func (c *Client) ensureSession(ctx context.Context) error {
	if !c.sessionExpired() {
		return nil
	}
	return c.authenticate(ctx)
}

func (c *Client) authenticate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:authenticate")
	defer span.End()

	// the expired session's cookies must not leak into the new one
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	c.http.SetCookieJar(jar)
	c.sessionStart = time.Time{}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptHtml).
		Get(loginPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page")
		return err
	}
	formBuildId, ok := htmlutil.InputValue(doc, "form_build_id")
	if !ok {
		span.SetStatus(codes.Error, "failed to find form_build_id")
		return &ParseError{Page: "login", Missing: "form_build_id"}
	}

	_, err = c.http.R().
		SetContext(ctx).
		SetHeader("Accept", acceptHtml).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(loginForm(c.login, c.password, formBuildId).Encode()).
		Post(loginPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to post credentials")
		return err
	}

	started, ok := c.sessionCookieValue()
	if !ok {
		span.SetStatus(codes.Error, "session cookie absent after login")
		return &AuthError{Reason: "session cookie absent after login"}
	}

	c.sessionStart = started
	slog.InfoContext(ctx, "authenticated", "login", c.login)
	return nil
}

func (c *Client) sessionCookieValue() (time.Time, bool) {
	for _, cookie := range c.http.GetClient().Jar.Cookies(c.baseUrl) {
		if cookie.Name != sessionCookie {
			continue
		}
		unix, err := strconv.ParseInt(cookie.Value, 10, 64)
		if err != nil {
			// the portal has always sent a unix second here; fall
			// back to the local clock rather than refusing a session
			// that did get its cookie
			return timezone.Now(), true
		}
		return time.Unix(unix, 0).In(timezone.Location), true
	}
	return time.Time{}, false
}
