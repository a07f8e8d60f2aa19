package identification

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"videosort/internal/identification/tmdb"
	"videosort/internal/logging"
	"videosort/internal/services"
	"videosort/internal/signals"
	"videosort/internal/textutil"
)

// minTitleSimilarity rejects provider results whose title shares no
// meaningful tokens with the candidate that produced them.
const minTitleSimilarity = 0.2

// ResolverOptions bound the provider traffic per item.
type ResolverOptions struct {
	CandidateCap        int
	MatchesPerCandidate int
}

// Resolver turns title candidates into provider metadata matches.
type Resolver struct {
	searcher tmdb.Searcher
	options  ResolverOptions
	logger   *slog.Logger
}

// NewResolver constructs a Resolver over the given provider client.
func NewResolver(searcher tmdb.Searcher, options ResolverOptions, logger *slog.Logger) *Resolver {
	if options.CandidateCap <= 0 {
		options.CandidateCap = 5
	}
	if options.MatchesPerCandidate <= 0 {
		options.MatchesPerCandidate = 3
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{searcher: searcher, options: options, logger: logger}
}

// Resolve searches movies then TV for each candidate, keeping the top
// matches per candidate by popularity. Transient provider failures skip
// that query; authentication failures abort the pass.
func (r *Resolver) Resolve(ctx context.Context, candidates []Candidate) ([]MetadataMatch, error) {
	if r.searcher == nil {
		return nil, nil
	}
	capped := candidates
	if len(capped) > r.options.CandidateCap {
		capped = capped[:r.options.CandidateCap]
	}

	var matches []MetadataMatch
	for _, candidate := range capped {
		opts := tmdb.SearchOptions{Year: candidate.Year}

		movieMatches, err := r.search(ctx, candidate, MediaTypeMovie, opts)
		if err != nil {
			return matches, err
		}
		matches = append(matches, movieMatches...)

		showMatches, err := r.search(ctx, candidate, MediaTypeShow, opts)
		if err != nil {
			return matches, err
		}
		matches = append(matches, showMatches...)
	}
	return matches, nil
}

func (r *Resolver) search(ctx context.Context, candidate Candidate, mediaType MediaType, opts tmdb.SearchOptions) ([]MetadataMatch, error) {
	var (
		resp *tmdb.Response
		err  error
	)
	if mediaType == MediaTypeMovie {
		resp, err = r.searcher.SearchMovie(ctx, candidate.Title, opts)
	} else {
		resp, err = r.searcher.SearchTV(ctx, candidate.Title, opts)
	}
	if err != nil {
		if errors.Is(err, tmdb.ErrAuth) {
			return nil, services.Wrap(services.ErrProviderAuth, "identifying", "metadata-search", "provider rejected credentials", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("metadata search failed, skipping query",
			logging.String("title", candidate.Title),
			logging.String("media_type", string(mediaType)),
			logging.Error(err))
		return nil, nil
	}

	results := resp.Results
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Popularity > results[j].Popularity
	})

	candidateFingerprint := textutil.NewFingerprint(candidate.Title)
	matches := make([]MetadataMatch, 0, r.options.MatchesPerCandidate)
	for _, result := range results {
		if len(matches) == r.options.MatchesPerCandidate {
			break
		}
		title := result.DisplayTitle()
		if title == "" {
			continue
		}
		// Subtitle queries are dialog, not titles; the result title is not
		// expected to resemble them.
		if candidate.Source != SourceSubtitle && candidateFingerprint.TokenCount() > 0 {
			resultFingerprint := textutil.NewFingerprint(title)
			if resultFingerprint.TokenCount() > 0 &&
				textutil.CosineSimilarity(candidateFingerprint, resultFingerprint) < minTitleSimilarity {
				continue
			}
		}
		matches = append(matches, MetadataMatch{
			ProviderID:          result.ID,
			MediaType:           mediaType,
			Title:               title,
			Year:                result.Year(),
			Popularity:          result.Popularity,
			CandidateConfidence: candidate.Confidence,
		})
	}
	return matches, nil
}

// ActorTitles fetches known titles for the given actor signals from the
// provider's person credits, keyed by the signal's reference id. Lookup
// failures degrade to missing entries except for authentication rejection.
func (r *Resolver) ActorTitles(ctx context.Context, actors []signals.Signal) (map[string][]string, error) {
	if r.searcher == nil || len(actors) == 0 {
		return nil, nil
	}
	titles := make(map[string][]string)
	for _, actor := range actors {
		people, err := r.searcher.SearchPerson(ctx, actor.Name)
		if err != nil {
			if errors.Is(err, tmdb.ErrAuth) {
				return titles, services.Wrap(services.ErrProviderAuth, "identifying", "person-search", "provider rejected credentials", err)
			}
			r.logger.Warn("person search failed, skipping corroboration",
				logging.String("actor", actor.Name),
				logging.Error(err))
			continue
		}
		if len(people.Results) == 0 {
			continue
		}
		credits, err := r.searcher.PersonCredits(ctx, people.Results[0].ID)
		if err != nil {
			if errors.Is(err, tmdb.ErrAuth) {
				return titles, services.Wrap(services.ErrProviderAuth, "identifying", "person-credits", "provider rejected credentials", err)
			}
			r.logger.Warn("person credits fetch failed",
				logging.String("actor", actor.Name),
				logging.Error(err))
			continue
		}
		for _, credit := range credits.Cast {
			name := credit.Title
			if name == "" {
				name = credit.Name
			}
			if name != "" {
				titles[actor.ID] = append(titles[actor.ID], name)
			}
		}
	}
	return titles, nil
}
