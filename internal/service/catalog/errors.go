package catalog

import "errors"

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrBusNotFound   = errors.New("bus not found")
	ErrDateRequired  = errors.New("travel date is required")
)
