package sessions

import (
	"encoding/json"
	"fmt"

	"trip-planner-service/internal/domain"
)

const keyPrefix = "trip:session:"

func sessionKey(id string) string { return keyPrefix + id }

func encodeSession(s *domain.Session) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %q: %w", s.ID, err)
	}
	return b, nil
}

func decodeSession(b []byte) (*domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}
