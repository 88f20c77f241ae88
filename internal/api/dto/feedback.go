package dto

import "trip-planner-service/internal/domain"

type CriteriaRequest struct {
	Tags         []string `json:"tags,omitempty" validate:"dive,required"`
	PlaceID      string   `json:"place_id,omitempty"`
	MinRating    float64  `json:"min_rating,omitempty" validate:"gte=0,lte=5"`
	MaxPriceTier int      `json:"max_price_tier,omitempty" validate:"gte=0,lte=4"`
}

// FeedbackRequest is the JSON body of POST /itineraries/{sessionID}/feedback.
type FeedbackRequest struct {
	Op          string           `json:"op" validate:"required,oneof=drop replace move add"`
	Day         int              `json:"day" validate:"required,min=1"`
	VisitIndex  int              `json:"visit_index" validate:"min=0"`
	TargetDay   *int             `json:"target_day,omitempty" validate:"omitempty,min=1"`
	TargetIndex *int             `json:"target_index,omitempty" validate:"omitempty,min=0"`
	Criteria    *CriteriaRequest `json:"criteria,omitempty"`
	Reason      string           `json:"reason,omitempty" validate:"max=500"`
}

func (r FeedbackRequest) ToDomain() domain.FeedbackRequest {
	out := domain.FeedbackRequest{
		Op:          r.Op,
		Day:         r.Day,
		VisitIndex:  r.VisitIndex,
		TargetDay:   r.TargetDay,
		TargetIndex: r.TargetIndex,
		Reason:      r.Reason,
	}
	if r.Criteria != nil {
		out.Criteria = &domain.Criteria{
			Tags:         r.Criteria.Tags,
			PlaceID:      r.Criteria.PlaceID,
			MinRating:    r.Criteria.MinRating,
			MaxPriceTier: r.Criteria.MaxPriceTier,
		}
	}
	return out
}

type FeedbackResponse struct {
	State     string            `json:"state"`
	Version   int64             `json:"version,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Message   string            `json:"message,omitempty"`
	Retryable bool              `json:"retryable"`
	Itinerary ItineraryResponse `json:"itinerary"`
}
