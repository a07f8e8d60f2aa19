package identification

import (
	"fmt"
	"sort"

	"videosort/internal/signals"
)

// FusionOptions hold the decision thresholds and corroboration weights.
type FusionOptions struct {
	MinConfidence      float64
	AmbiguityMargin    float64
	CorroborationBonus float64
	CorroborationCap   float64
}

// Evidence carries the weak signals available to corroborate hypotheses.
// ActorTitles maps an actor signal id to titles that actor is known for,
// merged from the reference database and provider credits. StudioTitles
// does the same for studio logos from the reference database.
type Evidence struct {
	Actors       []signals.Signal
	Studios      []signals.Signal
	ActorTitles  map[string][]string
	StudioTitles map[string][]string
}

// Engine scores hypotheses and accepts or declines an identification.
type Engine struct {
	options FusionOptions
}

// NewEngine constructs a fusion engine with the given thresholds.
func NewEngine(options FusionOptions) *Engine {
	return &Engine{options: options}
}

type hypothesis struct {
	mediaType MediaType
	title     string
	normTitle string
	year      int
	score     float64
	actors    []ActorContribution
}

// Fuse combines provider matches with signal evidence into a decision.
// No matches, a top score below the confidence threshold, or a runner-up
// within the ambiguity margin all produce an UNKNOWN decision.
func (e *Engine) Fuse(matches []MetadataMatch, evidence Evidence) Decision {
	hypotheses := e.buildHypotheses(matches, evidence)
	if len(hypotheses) == 0 {
		return e.unknown("no metadata matches", evidence)
	}

	sort.SliceStable(hypotheses, func(i, j int) bool {
		if hypotheses[i].score != hypotheses[j].score {
			return hypotheses[i].score > hypotheses[j].score
		}
		if hypotheses[i].normTitle != hypotheses[j].normTitle {
			return hypotheses[i].normTitle < hypotheses[j].normTitle
		}
		return hypotheses[i].year < hypotheses[j].year
	})

	top := hypotheses[0]
	if top.score < e.options.MinConfidence {
		return e.unknown(fmt.Sprintf("best score %.2f below threshold %.2f", top.score, e.options.MinConfidence), evidence)
	}
	if len(hypotheses) > 1 {
		second := hypotheses[1]
		if top.score-second.score <= e.options.AmbiguityMargin {
			return e.unknown(fmt.Sprintf("ambiguous: %q %.2f vs %q %.2f", top.title, top.score, second.title, second.score), evidence)
		}
	}

	decision := Decision{
		MediaType:  top.mediaType,
		Title:      top.title,
		Year:       top.year,
		Confidence: top.score,
		Actors:     top.actors,
	}
	if studio := signals.Strongest(evidence.Studios, signals.KindStudio); studio != nil {
		decision.Studio = studio.Name
	}
	return decision
}

// buildHypotheses folds duplicate matches into one hypothesis per
// (media type, normalized title, year), keeping the highest base score,
// then applies capped corroboration bonuses.
func (e *Engine) buildHypotheses(matches []MetadataMatch, evidence Evidence) []hypothesis {
	index := make(map[string]int)
	var hypotheses []hypothesis
	for _, match := range matches {
		normTitle := NormalizeTitle(match.Title)
		if normTitle == "" {
			continue
		}
		base := match.Popularity / 10
		if base > 1 {
			base = 1
		}
		if match.CandidateConfidence > base {
			base = match.CandidateConfidence
		}
		key := fmt.Sprintf("%s|%s|%d", match.MediaType, normTitle, match.Year)
		if idx, ok := index[key]; ok {
			if base > hypotheses[idx].score {
				hypotheses[idx].score = base
			}
			continue
		}
		index[key] = len(hypotheses)
		hypotheses = append(hypotheses, hypothesis{
			mediaType: match.MediaType,
			title:     match.Title,
			normTitle: normTitle,
			year:      match.Year,
			score:     base,
		})
	}

	for i := range hypotheses {
		e.corroborate(&hypotheses[i], evidence)
	}
	return hypotheses
}

// corroborate adds a bonus per signal whose known titles include the
// hypothesis title, bounded by the corroboration cap.
func (e *Engine) corroborate(h *hypothesis, evidence Evidence) {
	var bonus float64
	for _, actor := range evidence.Actors {
		if !titlesInclude(evidence.ActorTitles[actor.ID], h.normTitle) {
			continue
		}
		bonus += e.options.CorroborationBonus
		h.actors = append(h.actors, ActorContribution{ActorID: actor.ID, Confidence: actor.Confidence})
	}
	for _, studio := range evidence.Studios {
		if !titlesInclude(evidence.StudioTitles[studio.ID], h.normTitle) {
			continue
		}
		bonus += e.options.CorroborationBonus
	}
	if bonus > e.options.CorroborationCap {
		bonus = e.options.CorroborationCap
	}
	h.score += bonus
	if h.score > 1 {
		h.score = 1
	}
}

func titlesInclude(titles []string, normTitle string) bool {
	for _, title := range titles {
		if NormalizeTitle(title) == normTitle {
			return true
		}
	}
	return false
}

func (e *Engine) unknown(reason string, evidence Evidence) Decision {
	decision := Decision{
		MediaType:    MediaTypeUnknown,
		ReviewReason: reason,
	}
	if studio := signals.Strongest(evidence.Studios, signals.KindStudio); studio != nil {
		decision.Studio = studio.Name
	}
	return decision
}
