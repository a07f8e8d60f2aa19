package signals

import (
	"context"

	"videosort/internal/media/frames"
	"videosort/internal/refdb"
)

// Kind distinguishes actor signals from studio logo signals.
type Kind string

const (
	KindActor  Kind = "actor"
	KindStudio Kind = "studio"
)

// Signal is one weak classifier hit: a reference entry matched in a frame
// with confidence at or above the detector floor.
type Signal struct {
	Kind       Kind    `json:"kind"`
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	FrameIndex int     `json:"frame_index"`
}

// Detector matches frame fingerprints against the reference snapshot.
// An empty snapshot degrades to producing no signals, never an error:
// detection is optional evidence, not a requirement for a decision.
type Detector struct {
	snapshot    *refdb.Snapshot
	floor       float64
	fingerprint func(path string) ([]float64, error)
}

// NewDetector constructs a Detector with the given confidence floor.
func NewDetector(snapshot *refdb.Snapshot, floor float64) *Detector {
	return &Detector{
		snapshot:    snapshot,
		floor:       floor,
		fingerprint: refdb.FingerprintFile,
	}
}

// SetFingerprintForTests replaces frame fingerprinting during tests.
func (d *Detector) SetFingerprintForTests(fn func(path string) ([]float64, error)) {
	if fn != nil {
		d.fingerprint = fn
	}
}

// DetectActors matches sampled frames against the actor reference set.
func (d *Detector) DetectActors(ctx context.Context, sampled []frames.Frame) []Signal {
	return d.detect(ctx, sampled, d.snapshot.Actors(), KindActor)
}

// DetectStudios matches sampled frames against the studio logo reference set.
func (d *Detector) DetectStudios(ctx context.Context, sampled []frames.Frame) []Signal {
	return d.detect(ctx, sampled, d.snapshot.Logos(), KindStudio)
}

func (d *Detector) detect(ctx context.Context, sampled []frames.Frame, refs []refdb.Reference, kind Kind) []Signal {
	if len(refs) == 0 {
		return nil
	}

	var found []Signal
	for _, frame := range sampled {
		if ctx.Err() != nil {
			return found
		}
		vector, err := d.fingerprint(frame.Path)
		if err != nil {
			// Unreadable frames yield no signal; they are not an error.
			continue
		}
		for _, ref := range refs {
			similarity := refdb.Cosine(vector, ref.Vector)
			if similarity < d.floor {
				continue
			}
			found = append(found, Signal{
				Kind:       kind,
				ID:         ref.ID,
				Name:       ref.Name,
				Confidence: similarity,
				FrameIndex: frame.Index,
			})
		}
	}
	return found
}

// Strongest returns the highest-confidence signal of the given kind, or nil.
func Strongest(all []Signal, kind Kind) *Signal {
	var best *Signal
	for i := range all {
		if all[i].Kind != kind {
			continue
		}
		if best == nil || all[i].Confidence > best.Confidence {
			best = &all[i]
		}
	}
	return best
}

// Filter returns the signals of one kind, preserving order.
func Filter(all []Signal, kind Kind) []Signal {
	var out []Signal
	for _, sig := range all {
		if sig.Kind == kind {
			out = append(out, sig)
		}
	}
	return out
}
