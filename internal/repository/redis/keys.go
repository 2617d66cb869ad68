package redisrepo

import "fmt"

const ns = "dirabus:v1"

func KeyRoutes() string {
	return ns + ":catalog:routes"
}

func KeyRouteStations(routeID int64) string {
	return fmt.Sprintf("%s:catalog:route:%d:stations", ns, routeID)
}

func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func KeyIdemBooking(userID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%d:%s", ns, userID, idemKey)
}

func ChannelBookingsChanged() string {
	return ns + ":bookings:changed"
}

func ChannelBusLocation(busID int64) string {
	return fmt.Sprintf("%s:bus:%d:location", ns, busID)
}
