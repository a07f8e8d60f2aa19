package identification

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"videosort/internal/identification/tmdb"
	"videosort/internal/services"
	"videosort/internal/signals"
)

type stubSearcher struct {
	movies  map[string]*tmdb.Response
	shows   map[string]*tmdb.Response
	people  map[string]*tmdb.PersonResponse
	credits map[int64]*tmdb.Credits

	movieErr  error
	showErr   error
	personErr error

	movieCalls []string
	tvCalls    []string
}

func (s *stubSearcher) SearchMovie(ctx context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	s.movieCalls = append(s.movieCalls, fmt.Sprintf("%s|%d", query, opts.Year))
	if s.movieErr != nil {
		return nil, s.movieErr
	}
	if resp, ok := s.movies[query]; ok {
		return resp, nil
	}
	return &tmdb.Response{}, nil
}

func (s *stubSearcher) SearchTV(ctx context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	s.tvCalls = append(s.tvCalls, fmt.Sprintf("%s|%d", query, opts.Year))
	if s.showErr != nil {
		return nil, s.showErr
	}
	if resp, ok := s.shows[query]; ok {
		return resp, nil
	}
	return &tmdb.Response{}, nil
}

func (s *stubSearcher) SearchPerson(ctx context.Context, name string) (*tmdb.PersonResponse, error) {
	if s.personErr != nil {
		return nil, s.personErr
	}
	if resp, ok := s.people[name]; ok {
		return resp, nil
	}
	return &tmdb.PersonResponse{}, nil
}

func (s *stubSearcher) PersonCredits(ctx context.Context, personID int64) (*tmdb.Credits, error) {
	if credits, ok := s.credits[personID]; ok {
		return credits, nil
	}
	return &tmdb.Credits{}, nil
}

func TestResolveSearchesMovieThenTV(t *testing.T) {
	searcher := &stubSearcher{
		movies: map[string]*tmdb.Response{
			"Inception": {Results: []tmdb.Result{{ID: 27205, Title: "Inception", ReleaseDate: "2010-07-15", Popularity: 83}}},
		},
	}
	resolver := NewResolver(searcher, ResolverOptions{}, nil)

	matches, err := resolver.Resolve(context.Background(), []Candidate{{Title: "Inception", Year: 2010, Confidence: 0.8}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(searcher.movieCalls) != 1 || searcher.movieCalls[0] != "Inception|2010" {
		t.Fatalf("movie calls = %v", searcher.movieCalls)
	}
	if len(searcher.tvCalls) != 1 {
		t.Fatalf("tv calls = %v", searcher.tvCalls)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %+v", matches)
	}
	match := matches[0]
	if match.MediaType != MediaTypeMovie || match.Year != 2010 || match.CandidateConfidence != 0.8 {
		t.Fatalf("match = %+v", match)
	}
}

func TestResolveCapsCandidatesAndMatches(t *testing.T) {
	bigResponse := &tmdb.Response{}
	for i := 0; i < 10; i++ {
		bigResponse.Results = append(bigResponse.Results, tmdb.Result{
			ID: int64(i), Title: fmt.Sprintf("Match %d", i), Popularity: float64(10 - i),
		})
	}
	searcher := &stubSearcher{movies: map[string]*tmdb.Response{"A": bigResponse}}
	resolver := NewResolver(searcher, ResolverOptions{CandidateCap: 2, MatchesPerCandidate: 3}, nil)

	candidates := []Candidate{{Title: "A"}, {Title: "B"}, {Title: "C"}, {Title: "D"}}
	matches, err := resolver.Resolve(context.Background(), candidates)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(searcher.movieCalls) != 2 {
		t.Fatalf("candidate cap ignored: %v", searcher.movieCalls)
	}
	if len(matches) != 3 {
		t.Fatalf("matches per candidate cap ignored: %d matches", len(matches))
	}
	if matches[0].Popularity < matches[1].Popularity {
		t.Fatal("matches should be ordered by popularity")
	}
}

func TestResolveFiltersDissimilarTitles(t *testing.T) {
	searcher := &stubSearcher{
		movies: map[string]*tmdb.Response{
			"Inception": {Results: []tmdb.Result{
				{ID: 1, Title: "Totally Unrelated Film", Popularity: 95},
				{ID: 27205, Title: "Inception", ReleaseDate: "2010-07-15", Popularity: 83},
			}},
		},
	}
	resolver := NewResolver(searcher, ResolverOptions{}, nil)

	matches, err := resolver.Resolve(context.Background(), []Candidate{{Title: "Inception", Confidence: 0.8}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(matches) != 1 || matches[0].Title != "Inception" {
		t.Fatalf("matches = %+v", matches)
	}
}

func TestResolveKeepsPartialTitleOverlap(t *testing.T) {
	searcher := &stubSearcher{
		movies: map[string]*tmdb.Response{
			"Matrix": {Results: []tmdb.Result{
				{ID: 605, Title: "The Matrix Reloaded", Popularity: 40},
			}},
		},
	}
	resolver := NewResolver(searcher, ResolverOptions{}, nil)

	matches, err := resolver.Resolve(context.Background(), []Candidate{{Title: "Matrix", Confidence: 0.6}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(matches) != 1 || matches[0].Title != "The Matrix Reloaded" {
		t.Fatalf("partial overlap should survive the filter: %+v", matches)
	}
}

func TestResolveSkipsTransientFailures(t *testing.T) {
	searcher := &stubSearcher{
		movieErr: fmt.Errorf("search: %w", tmdb.ErrTransient),
		shows: map[string]*tmdb.Response{
			"Breaking Bad": {Results: []tmdb.Result{{ID: 1396, Name: "Breaking Bad", FirstAirDate: "2008-01-20", Popularity: 50}}},
		},
	}
	resolver := NewResolver(searcher, ResolverOptions{}, nil)

	matches, err := resolver.Resolve(context.Background(), []Candidate{{Title: "Breaking Bad", Confidence: 0.7}})
	if err != nil {
		t.Fatalf("transient failure must not abort the pass: %v", err)
	}
	if len(matches) != 1 || matches[0].MediaType != MediaTypeShow {
		t.Fatalf("matches = %+v", matches)
	}
}

func TestResolveAbortsOnAuthFailure(t *testing.T) {
	searcher := &stubSearcher{movieErr: fmt.Errorf("search: %w", tmdb.ErrAuth)}
	resolver := NewResolver(searcher, ResolverOptions{}, nil)

	_, err := resolver.Resolve(context.Background(), []Candidate{{Title: "Anything"}})
	if !errors.Is(err, services.ErrProviderAuth) {
		t.Fatalf("expected ErrProviderAuth, got %v", err)
	}
}

func TestActorTitlesFromCredits(t *testing.T) {
	searcher := &stubSearcher{
		people: map[string]*tmdb.PersonResponse{
			"Leonardo DiCaprio": {Results: []tmdb.Person{{ID: 6193, Name: "Leonardo DiCaprio"}}},
		},
		credits: map[int64]*tmdb.Credits{
			6193: {Cast: []tmdb.Credit{{Title: "Inception"}, {Name: "Some Show"}}},
		},
	}
	resolver := NewResolver(searcher, ResolverOptions{}, nil)

	titles, err := resolver.ActorTitles(context.Background(), []signals.Signal{
		{Kind: signals.KindActor, ID: "nm0000138", Name: "Leonardo DiCaprio"},
	})
	if err != nil {
		t.Fatalf("ActorTitles: %v", err)
	}
	got := titles["nm0000138"]
	if len(got) != 2 || got[0] != "Inception" || got[1] != "Some Show" {
		t.Fatalf("titles = %v", got)
	}
}

func TestActorTitlesToleratesLookupFailure(t *testing.T) {
	searcher := &stubSearcher{personErr: errors.New("boom")}
	resolver := NewResolver(searcher, ResolverOptions{}, nil)

	titles, err := resolver.ActorTitles(context.Background(), []signals.Signal{{ID: "nm1", Name: "Unknown"}})
	if err != nil {
		t.Fatalf("lookup failure must not be fatal: %v", err)
	}
	if len(titles) != 0 {
		t.Fatalf("titles = %v", titles)
	}
}
