package services

import (
	"fmt"
	"math"

	"github.com/umardraz9/mlmpk-sub009/internal/config"
	"github.com/umardraz9/mlmpk-sub009/internal/core/domain"
)

// Verification weights. They sum to 100.
const (
	weightTimeSpent   = 40
	weightScrollDepth = 30
	weightPointer     = 20
	weightEngagement  = 10
)

// PassScore is the minimum score that verifies an attempt. Rewards move
// money, so it is fixed rather than configurable.
const PassScore = 70

// scrollEpsilon absorbs float noise so a ratio equal to the minimum passes
const scrollEpsilon = 1e-9

// VerificationScorer scores engagement signals. It holds only thresholds and
// is safe for concurrent use.
type VerificationScorer struct {
	minTimeSpentMs int64
	minScrollDepth float64
}

// NewVerificationScorer creates a scorer from configured thresholds
func NewVerificationScorer(cfg config.ScoringConfig) *VerificationScorer {
	return &VerificationScorer{
		minTimeSpentMs: cfg.MinTimeSpentMs,
		minScrollDepth: cfg.MinScrollDepth,
	}
}

// ValidateSignals checks presence and range of every signal
func (s *VerificationScorer) ValidateSignals(signals domain.EngagementSignals) error {
	switch {
	case signals.TimeSpentMs == nil:
		return fmt.Errorf("%w: time_spent_ms is required", domain.ErrInvalidInput)
	case *signals.TimeSpentMs < 0:
		return fmt.Errorf("%w: time_spent_ms must not be negative", domain.ErrInvalidInput)
	case signals.ScrollDepthRatio == nil:
		return fmt.Errorf("%w: scroll_depth_ratio is required", domain.ErrInvalidInput)
	case math.IsNaN(*signals.ScrollDepthRatio) || *signals.ScrollDepthRatio < 0 || *signals.ScrollDepthRatio > 1:
		return fmt.Errorf("%w: scroll_depth_ratio must be between 0 and 1", domain.ErrInvalidInput)
	case signals.HadPointerMovement == nil:
		return fmt.Errorf("%w: had_pointer_movement is required", domain.ErrInvalidInput)
	case signals.ContentEngagementFlag == nil:
		return fmt.Errorf("%w: content_engagement_flag is required", domain.ErrInvalidInput)
	}
	return nil
}

// Score computes the verification result. It never fails: missing or
// out-of-range signals simply earn no points and add a reason.
func (s *VerificationScorer) Score(signals domain.EngagementSignals) domain.VerificationResult {
	score := 0
	reasons := make([]string, 0, 4)

	switch {
	case signals.TimeSpentMs == nil:
		reasons = append(reasons, "time spent was not reported")
	case *signals.TimeSpentMs >= s.minTimeSpentMs:
		score += weightTimeSpent
	default:
		reasons = append(reasons, fmt.Sprintf("time spent %dms is below the minimum %dms",
			*signals.TimeSpentMs, s.minTimeSpentMs))
	}

	switch {
	case signals.ScrollDepthRatio == nil:
		reasons = append(reasons, "scroll depth was not reported")
	case math.IsNaN(*signals.ScrollDepthRatio) || *signals.ScrollDepthRatio < 0 || *signals.ScrollDepthRatio > 1:
		reasons = append(reasons, "scroll depth is out of range")
	case *signals.ScrollDepthRatio+scrollEpsilon >= s.minScrollDepth:
		score += weightScrollDepth
	default:
		reasons = append(reasons, fmt.Sprintf("scroll depth %.2f is below the minimum %.2f",
			*signals.ScrollDepthRatio, s.minScrollDepth))
	}

	if signals.HadPointerMovement != nil && *signals.HadPointerMovement {
		score += weightPointer
	} else {
		reasons = append(reasons, "no pointer movement was detected")
	}

	if signals.ContentEngagementFlag != nil && *signals.ContentEngagementFlag {
		score += weightEngagement
	} else {
		reasons = append(reasons, "content engagement was not confirmed")
	}

	return domain.VerificationResult{
		Passed:  score >= PassScore,
		Score:   score,
		Reasons: reasons,
	}
}
