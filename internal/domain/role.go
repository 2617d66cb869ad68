package domain

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleConductor Role = "conductor"
	RolePassenger Role = "passenger"
)

type Capability int

const (
	CapBook Capability = iota
	CapViewOwnBookings
	CapViewBusBookings
	CapUpdateBusLocation
	CapUpdateBookingStatus
	CapViewAllBuses
)

var capabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapBook:                true,
		CapViewOwnBookings:     true,
		CapViewBusBookings:     true,
		CapUpdateBusLocation:   true,
		CapUpdateBookingStatus: true,
		CapViewAllBuses:        true,
	},
	RoleConductor: {
		CapBook:                true,
		CapViewOwnBookings:     true,
		CapViewBusBookings:     true,
		CapUpdateBusLocation:   true,
		CapUpdateBookingStatus: true,
	},
	RolePassenger: {
		CapBook:            true,
		CapViewOwnBookings: true,
	},
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := capabilities[r]
	return r, ok
}

func (r Role) Valid() bool {
	_, ok := capabilities[r]
	return ok
}

func (r Role) Can(c Capability) bool {
	return capabilities[r][c]
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID int64
	Role   Role
}

func (p *Principal) Authenticated() bool {
	return p != nil && p.UserID > 0 && p.Role.Valid()
}

// Can reports whether the principal is authenticated and its role grants c.
func (p *Principal) Can(c Capability) bool {
	return p.Authenticated() && p.Role.Can(c)
}
