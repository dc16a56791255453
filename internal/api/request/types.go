package request

import (
	"errors"

	"github.com/mcoot/geoguess/internal/model"
)

// AuthenticateRequest is the request body for signing in with an assertion
type AuthenticateRequest struct {
	Assertion string `json:"assertion"`
}

// Test authentication roles
const (
	RoleOperator    = "operator"
	RoleParticipant = "participant"
)

// TestAuthenticateRequest is the request body for test-mode sign in
type TestAuthenticateRequest struct {
	Role        string `json:"role"`
	ExternalID  int64  `json:"external_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// CoordinateRequest is the request body for creating a round or guessing.
// Pointers distinguish a missing field from zero.
type CoordinateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// ToModel validates presence and converts to a model.Coordinate.
// Range validation happens in the round store.
func (r CoordinateRequest) ToModel() (model.Coordinate, error) {
	if r.Latitude == nil || r.Longitude == nil {
		return model.Coordinate{}, errors.New("latitude and longitude are required")
	}
	return model.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}, nil
}
