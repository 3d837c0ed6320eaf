package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIterHandsFollowsPagination(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Path {
		case "/admin/login/":
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok"})
			w.WriteHeader(http.StatusOK)
		case "/v1/solver/power_ranking/organizers/org/events/event/episodes/Ep2026-01-01/hands":
			next := "http://" + r.Host + "/page/2"
			w.Write([]byte(`{"results":[{"stub":"h1"}],"next":"` + next + `"}`))
		default:
			w.Write([]byte(`{"results":[{"stub":"h2"}],"next":null}`))
		}
	}))
	defer server.Close()

	c, err := New(server.URL, "user", "pass", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("login: %v", err)
	}

	hands, errs := c.IterHands(context.Background(), "org", "event", "2026-01-01")
	var got []string
	for h := range hands {
		got = append(got, h.Stub)
	}
	if err := <-errs; err != nil {
		t.Fatalf("iter hands: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 hands across pages, got %d (%v)", len(got), got)
	}
}

func TestFetchDateNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c, err := New(server.URL, "user", "pass", time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.FetchDate(context.Background(), "org", "event", "2026-01-01")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
