package optimizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newthinker/smacross/internal/core"
)

// Range is a half-open integer window range [Start, Stop) walked by Step.
type Range struct {
	Start int `mapstructure:"start" json:"start" yaml:"start" validate:"gte=1"`
	Stop  int `mapstructure:"stop" json:"stop" yaml:"stop" validate:"gtfield=Start"`
	Step  int `mapstructure:"step" json:"step" yaml:"step" validate:"gte=1"`
}

// Validate rejects empty, inverted and non-positive ranges.
func (r Range) Validate() error {
	switch {
	case r.Start < 1:
		return core.WrapError(core.ErrInvalidRange, fmt.Errorf("start must be >= 1, got %d", r.Start))
	case r.Stop <= r.Start:
		return core.WrapError(core.ErrInvalidRange, fmt.Errorf("range %s is empty or inverted", r))
	case r.Step < 1:
		return core.WrapError(core.ErrInvalidRange, fmt.Errorf("step must be >= 1, got %d", r.Step))
	}
	return nil
}

// Values lists the window sizes in the range.
func (r Range) Values() []int {
	if r.Validate() != nil {
		return nil
	}
	out := make([]int, 0, (r.Stop-r.Start+r.Step-1)/r.Step)
	for v := r.Start; v < r.Stop; v += r.Step {
		out = append(out, v)
	}
	return out
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d:%d", r.Start, r.Stop, r.Step)
}

// ParseRange parses "start:stop[:step]"; step defaults to 1.
func ParseRange(s string) (Range, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Range{}, core.WrapError(core.ErrInvalidRange, fmt.Errorf("expected start:stop[:step], got %q", s))
	}

	nums := []int{0, 0, 1}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Range{}, core.WrapError(core.ErrInvalidRange, fmt.Errorf("parsing %q: %w", s, err))
		}
		nums[i] = n
	}

	r := Range{Start: nums[0], Stop: nums[1], Step: nums[2]}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}
