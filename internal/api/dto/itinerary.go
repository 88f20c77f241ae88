package dto

import "trip-planner-service/internal/domain"

type VisitResponse struct {
	PlaceID       string `json:"place_id"`
	Name          string `json:"name"`
	ETA           string `json:"eta"`
	ETD           string `json:"etd"`
	TravelMinutes int    `json:"travel_minutes"`
	StayMinutes   int    `json:"stay_minutes"`
}

type AccommodationResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Rating    float64 `json:"rating"`
	PriceTier int     `json:"price_tier"`
}

type DayResponse struct {
	Day           int                    `json:"day"`
	Date          string                 `json:"date"`
	Start         string                 `json:"start"`
	End           string                 `json:"end"`
	Visits        []VisitResponse        `json:"visits"`
	Accommodation *AccommodationResponse `json:"accommodation,omitempty"`
}

type ItineraryResponse struct {
	Days []DayResponse `json:"days"`
}

type SessionResponse struct {
	SessionID string            `json:"session_id"`
	Version   int64             `json:"version"`
	Itinerary ItineraryResponse `json:"itinerary"`
	Degraded  bool              `json:"degraded,omitempty"`
}

func NewItineraryResponse(it domain.Itinerary) ItineraryResponse {
	res := ItineraryResponse{Days: make([]DayResponse, 0, len(it.Days))}

	for _, d := range it.Days {
		visits := make([]VisitResponse, 0, len(d.Visits))
		for _, v := range d.Visits {
			visits = append(visits, VisitResponse{
				PlaceID:       v.PlaceID,
				Name:          v.Name,
				ETA:           v.ETA.String(),
				ETD:           v.ETD.String(),
				TravelMinutes: v.TravelMinutes,
				StayMinutes:   v.StayMinutes,
			})
		}

		day := DayResponse{
			Day:    d.Number,
			Date:   d.Date.Format(dateLayout),
			Start:  d.Window.Start.String(),
			End:    d.Window.End.String(),
			Visits: visits,
		}
		if a := d.Accommodation; a != nil {
			day.Accommodation = &AccommodationResponse{
				ID:        a.ID,
				Name:      a.Name,
				Lat:       a.Location.Lat,
				Lon:       a.Location.Lon,
				Rating:    a.Rating,
				PriceTier: a.PriceTier,
			}
		}

		res.Days = append(res.Days, day)
	}

	return res
}

func NewSessionResponse(s *domain.Session) SessionResponse {
	return SessionResponse{
		SessionID: s.ID,
		Version:   s.Version,
		Itinerary: NewItineraryResponse(s.Itinerary),
		Degraded:  s.Degraded,
	}
}
