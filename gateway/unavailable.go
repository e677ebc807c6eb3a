package gateway

import (
	"context"

	"location_form/models"
)

type unavailableGateway struct{}

// Unavailable returns a Gateway that fails every call. It stands in when no
// remote service is configured so forms still open and report the failure.
func Unavailable() Gateway {
	return unavailableGateway{}
}

func unavailable(op string) error {
	return &NetworkError{Operation: op, Message: "geographic data service is not configured"}
}

func (unavailableGateway) ListCountries(context.Context) ([]models.Country, error) {
	return nil, unavailable(OpListCountries)
}

func (unavailableGateway) ListStates(context.Context, string) ([]models.State, error) {
	return nil, unavailable(OpListStates)
}

func (unavailableGateway) ListDistricts(context.Context, string, string) ([]string, error) {
	return nil, unavailable(OpListDistricts)
}

func (unavailableGateway) ListCities(context.Context, string, string, string) ([]string, error) {
	return nil, unavailable(OpListCities)
}
