package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"videosort/internal/fileutil"
	"videosort/internal/services"
)

// Outcome describes what the placement executor did with a file.
type Outcome string

const (
	OutcomeMoved   Outcome = "moved"
	OutcomeRenamed Outcome = "renamed_and_moved"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Placement is the result of one placement attempt.
type Placement struct {
	FinalPath string
	Outcome   Outcome
}

// Collision suffixes are bounded; a destination with this many variants
// taken indicates something systematically wrong, not a naming clash.
const maxCollisionSuffix = 100

// Place moves src to dst without ever overwriting an existing file. The
// source is already at the destination → skipped. An occupied destination
// gets a " (n)" suffix before the extension. Same-device placements
// rename; cross-device placements copy with checksum verification and then
// delete the source. On any failure the source file is left intact.
func Place(src, dst string) (Placement, error) {
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return failed(services.Wrap(services.ErrPlacement, "organizing", "resolve-source", "source path is invalid", err))
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return failed(services.Wrap(services.ErrPlacement, "organizing", "resolve-destination", "destination path is invalid", err))
	}
	if srcAbs == dstAbs {
		return Placement{FinalPath: dstAbs, Outcome: OutcomeSkipped}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
		return failed(services.Wrap(services.ErrPlacement, "organizing", "create-directory", "destination directory could not be created", err))
	}

	final, renamed, err := reserveDestination(dstAbs)
	if err != nil {
		return failed(err)
	}

	sameDevice, err := fileutil.SameDevice(srcAbs, filepath.Dir(final))
	if err != nil {
		return failed(services.Wrap(services.ErrPlacement, "organizing", "device-check", "device comparison failed", err))
	}

	if sameDevice {
		if err := os.Rename(srcAbs, final); err != nil {
			return failed(services.Wrap(services.ErrPlacement, "organizing", "rename", "rename failed", err))
		}
	} else {
		if err := fileutil.CopyFileVerified(srcAbs, final); err != nil {
			return failed(services.Wrap(services.ErrPlacement, "organizing", "verified-copy", "cross-device copy failed", err))
		}
		if err := os.Remove(srcAbs); err != nil {
			// The verified copy is in place; losing the source delete is
			// recoverable by hand and must not fail the item.
			return Placement{FinalPath: final, Outcome: outcome(renamed)}, nil
		}
	}
	return Placement{FinalPath: final, Outcome: outcome(renamed)}, nil
}

// reserveDestination finds the first free variant of dst, appending
// " (n)" before the extension on collision.
func reserveDestination(dst string) (string, bool, error) {
	if !exists(dst) {
		return dst, false, nil
	}
	ext := filepath.Ext(dst)
	stem := strings.TrimSuffix(dst, ext)
	for n := 1; n <= maxCollisionSuffix; n++ {
		variant := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !exists(variant) {
			return variant, true, nil
		}
	}
	return "", false, services.Wrap(services.ErrPlacement, "organizing", "reserve-destination",
		fmt.Sprintf("more than %d collisions at %s", maxCollisionSuffix, dst), nil)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func outcome(renamed bool) Outcome {
	if renamed {
		return OutcomeRenamed
	}
	return OutcomeMoved
}

func failed(err error) (Placement, error) {
	return Placement{Outcome: OutcomeFailed}, err
}
