package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New("test-key", server.URL, "en-US", WithRetries(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	client.SetSleepForTests(func(time.Duration) {})
	return client
}

func TestSearchMovieSendsYearFilter(t *testing.T) {
	var gotQuery, gotYear, gotKey string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotYear = r.URL.Query().Get("primary_release_year")
		gotKey = r.URL.Query().Get("api_key")
		w.Write([]byte(`{"page":1,"results":[{"id":27205,"title":"Inception","release_date":"2010-07-15","popularity":83.2}],"total_results":1}`))
	}))

	resp, err := client.SearchMovie(context.Background(), "Inception", SearchOptions{Year: 2010})
	if err != nil {
		t.Fatalf("SearchMovie: %v", err)
	}
	if gotQuery != "Inception" || gotYear != "2010" || gotKey != "test-key" {
		t.Fatalf("query=%q year=%q key=%q", gotQuery, gotYear, gotKey)
	}
	if len(resp.Results) != 1 || resp.Results[0].DisplayTitle() != "Inception" {
		t.Fatalf("results = %+v", resp.Results)
	}
	if resp.Results[0].Year() != 2010 {
		t.Fatalf("year = %d", resp.Results[0].Year())
	}
}

func TestSearchTVUsesFirstAirDateYear(t *testing.T) {
	var gotYear string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotYear = r.URL.Query().Get("first_air_date_year")
		w.Write([]byte(`{"page":1,"results":[{"id":1396,"name":"Breaking Bad","first_air_date":"2008-01-20"}]}`))
	}))

	resp, err := client.SearchTV(context.Background(), "Breaking Bad", SearchOptions{Year: 2008})
	if err != nil {
		t.Fatalf("SearchTV: %v", err)
	}
	if gotYear != "2008" {
		t.Fatalf("first_air_date_year = %q", gotYear)
	}
	if resp.Results[0].DisplayTitle() != "Breaking Bad" || resp.Results[0].Year() != 2008 {
		t.Fatalf("result = %+v", resp.Results[0])
	}
}

func TestRateLimitRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"page":1,"results":[]}`))
	}))

	if _, err := client.SearchMovie(context.Background(), "anything", SearchOptions{}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls.Load() != 4 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestTransientErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.SearchMovie(context.Background(), "anything", SearchOptions{})
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if calls.Load() != 4 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestAuthRejectionFailsWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.SearchMovie(context.Background(), "anything", SearchOptions{})
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("auth failure should not retry, calls = %d", calls.Load())
	}
}

func TestPersonCredits(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/person":
			w.Write([]byte(`{"page":1,"results":[{"id":6193,"name":"Leonardo DiCaprio","popularity":45.1}]}`))
		case "/person/6193/combined_credits":
			w.Write([]byte(`{"id":6193,"cast":[{"id":27205,"title":"Inception","media_type":"movie"},{"id":597,"title":"Titanic","media_type":"movie"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	people, err := client.SearchPerson(context.Background(), "Leonardo DiCaprio")
	if err != nil {
		t.Fatalf("SearchPerson: %v", err)
	}
	if len(people.Results) != 1 || people.Results[0].ID != 6193 {
		t.Fatalf("people = %+v", people.Results)
	}
	credits, err := client.PersonCredits(context.Background(), people.Results[0].ID)
	if err != nil {
		t.Fatalf("PersonCredits: %v", err)
	}
	if len(credits.Cast) != 2 || credits.Cast[0].Title != "Inception" {
		t.Fatalf("credits = %+v", credits.Cast)
	}
}

func TestEmptyQueryRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be sent")
	}))
	if _, err := client.SearchMovie(context.Background(), "  ", SearchOptions{}); err == nil {
		t.Fatal("expected error for empty query")
	}
}
