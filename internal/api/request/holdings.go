package request

import (
	"fmt"
	"strconv"
	"strings"
)

// HoldingsParams holds the query parameters of GET /api/holdings.
type HoldingsParams struct {
	SortByCost    bool
	IncludeClosed bool
	// Refresh bypasses the quote cache.
	Refresh bool
}

// ParseHoldingsParams extracts and validates holdings query parameters.
//
// Validation rules:
//   - sort: empty or "cost"
//   - includeClosed, refresh: empty or a value accepted by strconv.ParseBool
//
// Returns an error if any parameter fails validation.
func ParseHoldingsParams(sortParam, includeClosedParam, refreshParam string) (HoldingsParams, error) {
	var params HoldingsParams

	switch strings.ToLower(strings.TrimSpace(sortParam)) {
	case "":
	case "cost":
		params.SortByCost = true
	default:
		return HoldingsParams{}, fmt.Errorf("invalid sort: %s (must be 'cost')", sortParam)
	}

	var err error
	if params.IncludeClosed, err = parseBoolParam("includeClosed", includeClosedParam); err != nil {
		return HoldingsParams{}, err
	}
	if params.Refresh, err = parseBoolParam("refresh", refreshParam); err != nil {
		return HoldingsParams{}, err
	}

	return params, nil
}

func parseBoolParam(name, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s", name, value)
	}
	return b, nil
}
