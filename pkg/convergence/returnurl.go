package convergence

import (
	"fmt"
	"net/url"
)

// ReturnParam is the query parameter the checkout success and cancel URLs
// carry back to the client.
const ReturnParam = "payment"

type Marker int

const (
	MarkerNone Marker = iota
	MarkerSuccess
	MarkerCanceled
)

func (m Marker) String() string {
	switch m {
	case MarkerSuccess:
		return "success"
	case MarkerCanceled:
		return "canceled"
	default:
		return "none"
	}
}

// ParseReturnURL detects the payment marker on a return URL and gives back
// the URL without it, so a reload does not trigger the flow again. Unknown
// marker values are stripped as well but report MarkerNone.
func ParseReturnURL(raw string) (Marker, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return MarkerNone, raw, fmt.Errorf("parse return url: %w", err)
	}

	q := u.Query()
	if !q.Has(ReturnParam) {
		return MarkerNone, raw, nil
	}

	marker := MarkerNone
	switch q.Get(ReturnParam) {
	case "success":
		marker = MarkerSuccess
	case "canceled", "cancelled":
		marker = MarkerCanceled
	}

	q.Del(ReturnParam)
	u.RawQuery = q.Encode()
	return marker, u.String(), nil
}
