package sync

import (
	"errors"
	"fmt"

	"github.com/Unbanked0/btcmap-api/internal/domain"
)

// ErrDatasetTooSmall signals a fetched dataset too small to be genuine:
// almost certainly upstream truncation or corruption rather than a real
// mass deletion.
var ErrDatasetTooSmall = errors.New("fetched dataset is implausibly small")

// Guard validates gross properties of a freshly fetched dataset before
// the reconciler is allowed to commit destructive changes.
type Guard struct {
	minElements int
}

// NewGuard creates a guard with an operationally derived minimum
// plausible dataset size.
func NewGuard(minElements int) *Guard {
	return &Guard{minElements: minElements}
}

// Validate rejects datasets whose cardinality falls below the minimum.
func (g *Guard) Validate(elements []domain.OsmJSON) error {
	if len(elements) < g.minElements {
		return fmt.Errorf("%w: got %d elements, expected at least %d", ErrDatasetTooSmall, len(elements), g.minElements)
	}
	return nil
}
