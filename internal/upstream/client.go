// Package upstream implements the CSRF-handshake HTTP client used to pull
// hand histories from the organizer's web application.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when a date has no hands published yet.
var ErrNotFound = errors.New("upstream: date not found")

// ErrUnavailable covers network failures, timeouts, and malformed
// responses that a caller may choose to retry.
var ErrUnavailable = errors.New("upstream: unavailable")

// defaultPageLimit matches BATCH_LIMIT's config default (C1).
const defaultPageLimit = 50

// Client pulls hand-history pages from the organizer's site. It
// performs the login/CSRF handshake once and reuses the resulting
// cookie jar for subsequent paginated requests.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	username   string
	password   string
	csrfToken  string
}

// New constructs a Client for baseURL. It does not log in, and fetches do
// not log in on their own: callers call Login before fetching.
func New(baseURL, username, password string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("upstream: parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: create cookie jar: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  u,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}, nil
}

// Login performs the CSRF-token handshake: a GET to fetch the token
// cookie, then a POST with credentials and the token echoed back in a
// header, as the organizer site's login form requires.
func (c *Client) Login(ctx context.Context) error {
	loginURL := c.resolve("/admin/login/?next=/admin/")

	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return fmt.Errorf("upstream: build login GET: %w", err)
	}
	resp, err := c.httpClient.Do(getReq)
	if err != nil {
		return fmt.Errorf("%w: login GET: %v", ErrUnavailable, err)
	}
	resp.Body.Close()

	for _, ck := range c.httpClient.Jar.Cookies(getReq.URL) {
		if ck.Name == "csrftoken" {
			c.csrfToken = ck.Value
		}
	}
	if c.csrfToken == "" {
		return fmt.Errorf("%w: no csrf token in login page", ErrUnavailable)
	}

	postURL := c.resolve("/admin/login/")
	form := url.Values{
		"username":            {c.username},
		"password":            {c.password},
		"csrfmiddlewaretoken": {c.csrfToken},
		"next":                {"/admin/"},
	}
	postReq, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("upstream: build login POST: %w", err)
	}
	postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	postReq.Header.Set("Referer", loginURL)
	postReq.Header.Set("X-CSRFToken", c.csrfToken)

	resp, err = c.httpClient.Do(postReq)
	if err != nil {
		return fmt.Errorf("%w: login POST: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		return fmt.Errorf("%w: login rejected with status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// FetchDate fetches the first page of hands for the given organizer
// event and date. Use Next to follow subsequent pages.
func (c *Client) FetchDate(ctx context.Context, organizer, event, date string) (*PageResponse, error) {
	path := fmt.Sprintf("/v1/solver/power_ranking/organizers/%s/events/%s/episodes/Ep%s/hands?limit=%d&offset=0",
		organizer, event, date, defaultPageLimit)
	return c.fetch(ctx, c.resolve(path))
}

// Next follows a page's "next" cursor, or returns (nil, nil) if there
// is no further page.
func (c *Client) Next(ctx context.Context, page *PageResponse) (*PageResponse, error) {
	if page == nil || page.Next == nil || *page.Next == "" {
		return nil, nil
	}
	return c.fetch(ctx, *page.Next)
}

func (c *Client) fetch(ctx context.Context, fullURL string) (*PageResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	if c.csrfToken != "" {
		req.Header.Set("X-CSRFToken", c.csrfToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, 64<<20)
	var page PageResponse
	if err := json.NewDecoder(limited).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	return &page, nil
}

// IterHands drives FetchDate/Next to stream every hand for a date in
// publication order, closing the returned channels once exhausted or on
// error (the last value on the error channel, if any, is the terminal
// failure).
func (c *Client) IterHands(ctx context.Context, organizer, event, date string) (<-chan RawHand, <-chan error) {
	hands := make(chan RawHand)
	errs := make(chan error, 1)

	go func() {
		defer close(hands)
		defer close(errs)

		page, err := c.FetchDate(ctx, organizer, event, date)
		if err != nil {
			errs <- err
			return
		}
		for page != nil {
			for _, h := range page.Results {
				select {
				case hands <- h:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
			page, err = c.Next(ctx, page)
			if err != nil {
				errs <- err
				return
			}
		}
	}()

	return hands, errs
}

func (c *Client) resolve(p string) string {
	ref, err := url.Parse(p)
	if err != nil {
		return p
	}
	return c.baseURL.ResolveReference(ref).String()
}
