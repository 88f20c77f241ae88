package domain

import (
	"fmt"
	"slices"
)

type OpKind string

const (
	OpDrop    OpKind = "drop"
	OpReplace OpKind = "replace"
	OpMove    OpKind = "move"
	OpAdd     OpKind = "add"
)

// Criteria narrows the candidates considered by Replace and Add.
type Criteria struct {
	Tags         []string `json:"tags,omitempty"`
	PlaceID      string   `json:"place_id,omitempty"`
	MinRating    float64  `json:"min_rating,omitempty"`
	MaxPriceTier int      `json:"max_price_tier,omitempty"`
}

// Matches reports whether c satisfies every criterion that is set.
func (cr Criteria) Matches(c Candidate) bool {
	if c.Kind != KindPlace {
		return false
	}
	if cr.PlaceID != "" && c.ID != cr.PlaceID {
		return false
	}
	if cr.MinRating > 0 && c.Rating < cr.MinRating {
		return false
	}
	if cr.MaxPriceTier > 0 && c.PriceTier > cr.MaxPriceTier {
		return false
	}
	for _, t := range cr.Tags {
		if !slices.Contains(c.Tags, t) {
			return false
		}
	}
	return true
}

// FeedbackOp is one structured edit of an itinerary. Implementations are
// Drop, Replace, Move and Add; the set is closed.
type FeedbackOp interface {
	Kind() OpKind
	// Days returns the day numbers the op touches.
	Days() []int
	isFeedbackOp()
}

// Drop removes the visit at VisitIndex on Day.
type Drop struct {
	Day        int
	VisitIndex int
	Reason     string
}

// Replace swaps the visit at VisitIndex on Day for an alternative matching Criteria.
type Replace struct {
	Day        int
	VisitIndex int
	Criteria   Criteria
	Reason     string
}

// Move relocates a visit to TargetDay, preferably at TargetIndex.
type Move struct {
	Day         int
	VisitIndex  int
	TargetDay   int
	TargetIndex int
	Reason      string
}

// Add inserts a new candidate matching Criteria into Day.
// TargetIndex < 0 lets the engine pick the cheapest feasible position.
type Add struct {
	Day         int
	TargetIndex int
	Criteria    Criteria
	Reason      string
}

func (Drop) Kind() OpKind    { return OpDrop }
func (Replace) Kind() OpKind { return OpReplace }
func (Move) Kind() OpKind    { return OpMove }
func (Add) Kind() OpKind     { return OpAdd }

func (o Drop) Days() []int    { return []int{o.Day} }
func (o Replace) Days() []int { return []int{o.Day} }
func (o Add) Days() []int     { return []int{o.Day} }
func (o Move) Days() []int {
	if o.Day == o.TargetDay {
		return []int{o.Day}
	}
	return []int{o.Day, o.TargetDay}
}

func (Drop) isFeedbackOp()    {}
func (Replace) isFeedbackOp() {}
func (Move) isFeedbackOp()    {}
func (Add) isFeedbackOp()     {}

// FeedbackRequest is the loosely-typed wire shape of a feedback op.
type FeedbackRequest struct {
	Op          string    `json:"op"`
	Day         int       `json:"day"`
	VisitIndex  int       `json:"visit_index"`
	TargetDay   *int      `json:"target_day,omitempty"`
	TargetIndex *int      `json:"target_index,omitempty"`
	Criteria    *Criteria `json:"criteria,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

// ParseFeedbackOp converts the wire shape into a typed op, rejecting
// combinations that make no sense for the op kind.
func ParseFeedbackOp(req FeedbackRequest) (FeedbackOp, error) {
	if req.Day < 1 {
		return nil, NewValidationError(ReasonInvalidOp, "day must be >= 1")
	}

	var criteria Criteria
	if req.Criteria != nil {
		criteria = *req.Criteria
	}

	switch OpKind(req.Op) {
	case OpDrop:
		if req.VisitIndex < 0 {
			return nil, NewValidationError(ReasonInvalidOp, "visit_index must be >= 0")
		}
		return Drop{Day: req.Day, VisitIndex: req.VisitIndex, Reason: req.Reason}, nil

	case OpReplace:
		if req.VisitIndex < 0 {
			return nil, NewValidationError(ReasonInvalidOp, "visit_index must be >= 0")
		}
		return Replace{Day: req.Day, VisitIndex: req.VisitIndex, Criteria: criteria, Reason: req.Reason}, nil

	case OpMove:
		if req.VisitIndex < 0 {
			return nil, NewValidationError(ReasonInvalidOp, "visit_index must be >= 0")
		}
		if req.TargetDay == nil || *req.TargetDay < 1 {
			return nil, NewValidationError(ReasonInvalidOp, "move requires target_day >= 1")
		}
		idx := 0
		if req.TargetIndex != nil {
			idx = *req.TargetIndex
		}
		if idx < 0 {
			return nil, NewValidationError(ReasonInvalidOp, "target_index must be >= 0")
		}
		return Move{Day: req.Day, VisitIndex: req.VisitIndex, TargetDay: *req.TargetDay, TargetIndex: idx, Reason: req.Reason}, nil

	case OpAdd:
		idx := -1
		if req.TargetIndex != nil {
			if *req.TargetIndex < 0 {
				return nil, NewValidationError(ReasonInvalidOp, "target_index must be >= 0")
			}
			idx = *req.TargetIndex
		}
		day := req.Day
		if req.TargetDay != nil {
			day = *req.TargetDay
		}
		return Add{Day: day, TargetIndex: idx, Criteria: criteria, Reason: req.Reason}, nil

	default:
		return nil, NewValidationError(ReasonInvalidOp, fmt.Sprintf("unknown op %q", req.Op))
	}
}
