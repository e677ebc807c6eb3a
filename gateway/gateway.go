// Package gateway mediates all access to the remote geographic-data service.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"location_form/models"
)

// Operation names, used in errors, logs and metrics.
const (
	OpListCountries = "list_countries"
	OpListStates    = "list_states"
	OpListDistricts = "list_districts"
	OpListCities    = "list_cities"
)

// Gateway lists the options available at each location level. Every call is
// a single best-effort request.
type Gateway interface {
	ListCountries(ctx context.Context) ([]models.Country, error)
	ListStates(ctx context.Context, country string) ([]models.State, error)
	ListDistricts(ctx context.Context, country, state string) ([]string, error)
	ListCities(ctx context.Context, country, state, district string) ([]string, error)
}

// ErrNetwork matches every *NetworkError via errors.Is.
var ErrNetwork = errors.New("network error")

// NetworkError covers transport failures, non-success responses and bodies
// that cannot be decoded.
type NetworkError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *NetworkError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Operation, msg)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}
