package httpserver

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"free_cabins/internal/domain"
)

// amenity query flags and the tag each one requires
var amenityParams = []struct{ param, tag string }{
	{"hasWater", "water"},
	{"hasToilet", "toilet"},
	{"hasFireplace", "fireplace"},
	{"hasElectricity", "electricity"},
}

func parseFilter(q url.Values) (domain.CabinFilter, error) {
	f := domain.CabinFilter{
		Country: strings.TrimSpace(q.Get("country")),
		Region:  strings.TrimSpace(q.Get("region")),
		Type:    strings.TrimSpace(q.Get("cabinType")),
	}
	if f.Type == "all" {
		f.Type = ""
	}

	var err error
	if f.MinCapacity, err = optInt(q, "minCapacity"); err != nil {
		return f, err
	}
	if f.MaxCapacity, err = optInt(q, "maxCapacity"); err != nil {
		return f, err
	}
	if f.RequiresBooking, err = optBool(q, "requiresBooking"); err != nil {
		return f, err
	}
	if f.IsFree, err = optBool(q, "isFree"); err != nil {
		return f, err
	}
	for _, a := range amenityParams {
		on, err := optBool(q, a.param)
		if err != nil {
			return f, err
		}
		if on != nil && *on {
			f.Amenities = append(f.Amenities, a.tag)
		}
	}
	return f, nil
}

func optInt(q url.Values, key string) (*int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, &domain.ValidationError{Field: key, Reason: fmt.Sprintf("%q is not a non-negative integer", raw)}
	}
	return &n, nil
}

// optBool accepts true/false; empty, "any" and "all" mean no constraint.
func optBool(q url.Values, key string) (*bool, error) {
	raw := strings.ToLower(strings.TrimSpace(q.Get(key)))
	switch raw {
	case "", "any", "all":
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, &domain.ValidationError{Field: key, Reason: fmt.Sprintf("%q is not a boolean", raw)}
	}
	return &b, nil
}
