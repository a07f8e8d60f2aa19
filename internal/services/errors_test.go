package services_test

import (
	"errors"
	"strings"
	"testing"

	"videosort/internal/queue"
	"videosort/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection reset")
	err := services.Wrap(services.ErrProviderTransient, "identification", "tmdb search", "query skipped", base)
	if !errors.Is(err, services.ErrProviderTransient) {
		t.Fatalf("expected wrapped error to match marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to retain cause, got %v", err)
	}
	for _, want := range []string{"identification", "tmdb search", "query skipped", "connection reset"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrDecode, "analysis", "probe", "zero duration", nil)
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected decode marker, got %v", err)
	}
}

func TestWrapWithoutMarkerKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := services.Wrap(nil, "stage", "op", "", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if errors.Is(err, services.ErrProviderTransient) {
		t.Fatalf("unmarked errors must not classify as transient: %v", err)
	}
}

func TestFailureStatus(t *testing.T) {
	cases := []struct {
		err  error
		want queue.Status
	}{
		{services.Wrap(services.ErrValidation, "s", "o", "", nil), queue.StatusReview},
		{services.Wrap(services.ErrConfiguration, "s", "o", "", nil), queue.StatusReview},
		{services.Wrap(services.ErrNotFound, "s", "o", "", nil), queue.StatusReview},
		{services.Wrap(services.ErrDecode, "s", "o", "", nil), queue.StatusFailed},
		{services.Wrap(services.ErrPlacement, "s", "o", "", nil), queue.StatusFailed},
		{errors.New("plain"), queue.StatusFailed},
	}
	for _, tc := range cases {
		if got := services.FailureStatus(tc.err); got != tc.want {
			t.Fatalf("FailureStatus(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
