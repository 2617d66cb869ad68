// Package docs holds the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/dirabus/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/routes": {
            "get": {"tags": ["catalog"], "summary": "List routes with their stations",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Route"}}}}}
        },
        "/routes/{id}/stations": {
            "get": {"tags": ["catalog"], "summary": "List stations of a route in travel order",
                "parameters": [{"type": "integer", "description": "Route ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Station"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/buses/route/{route_id}": {
            "get": {"tags": ["catalog"], "summary": "List active buses of a route with free seats for a date",
                "parameters": [
                    {"type": "integer", "description": "Route ID", "name": "route_id", "in": "path", "required": true},
                    {"type": "string", "description": "Travel date (YYYY-MM-DD)", "name": "date", "in": "query", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.BusWithAvailability"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/buses/{id}/seats": {
            "get": {"tags": ["catalog"], "summary": "List seats of a bus, optionally with booked flags for a date",
                "parameters": [
                    {"type": "integer", "description": "Bus ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Travel date (YYYY-MM-DD)", "name": "date", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.SeatWithBooking"}}}}}
        },
        "/buses/{id}/availability": {
            "get": {"tags": ["catalog"], "summary": "Count free seats of a bus",
                "parameters": [
                    {"type": "integer", "description": "Bus ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Travel date (YYYY-MM-DD); capacity when omitted", "name": "date", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httpgin.AvailabilityResponse"}}}}
        },
        "/buses/{id}/location/stream": {
            "get": {"tags": ["catalog"], "summary": "Stream live positions of a bus (server-sent events)", "produces": ["text/event-stream"],
                "parameters": [{"type": "integer", "description": "Bus ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "event: location", "schema": {"$ref": "#/definitions/domain.LocationUpdate"}}}}
        },
        "/buses/{id}/location": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["operations"], "summary": "Report the current position of a bus",
                "parameters": [
                    {"type": "integer", "description": "Bus ID", "name": "id", "in": "path", "required": true},
                    {"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.UpdateLocationRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.LocationUpdate"}}}}
        },
        "/bookings": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["bookings"], "summary": "Book seats (idempotent)",
                "parameters": [
                    {"type": "string", "description": "client request key", "name": "Idempotency-Key", "in": "header"},
                    {"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.CreateBookingRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Booking"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "409": {"description": "seat already booked / key in progress", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}},
                    "429": {"description": "rate limited", "schema": {"$ref": "#/definitions/httpgin.ErrorResponse"}}}}
        },
        "/bookings/{receipt}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["bookings"], "summary": "Get own booking by receipt",
                "parameters": [{"type": "string", "description": "Receipt ID", "name": "receipt", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Booking"}}}}
        },
        "/bookings/{receipt}/receipt.pdf": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["bookings"], "summary": "Download own booking as a PDF receipt", "produces": ["application/pdf"],
                "parameters": [{"type": "string", "description": "Receipt ID", "name": "receipt", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}}
        },
        "/bookings/{receipt}/cancel": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["bookings"], "summary": "Cancel own booking",
                "parameters": [{"type": "string", "description": "Receipt ID", "name": "receipt", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Booking"}}}}
        },
        "/bookings/{receipt}/status": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["operations"], "summary": "Change a booking's status",
                "parameters": [
                    {"type": "string", "description": "Receipt ID", "name": "receipt", "in": "path", "required": true},
                    {"description": "payload", "name": "req", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpgin.UpdateStatusRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Booking"}}}}
        },
        "/user/bookings": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["bookings"], "summary": "List own bookings, newest first",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Booking"}}}}}
        },
        "/conductor/buses": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["operations"], "summary": "List buses the caller works on (admins: all buses)",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Bus"}}}}}
        },
        "/conductor/bookings": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["operations"], "summary": "List bookings on the caller's buses",
                "parameters": [
                    {"type": "integer", "description": "Bus ID", "name": "bus", "in": "query"},
                    {"type": "string", "description": "Travel date (YYYY-MM-DD)", "name": "date", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Booking"}}}}}
        }
    },
    "definitions": {
        "domain.Station": {"type": "object", "properties": {
            "id": {"type": "integer"}, "route": {"type": "integer"}, "name": {"type": "string"},
            "latitude": {"type": "number"}, "longitude": {"type": "number"}, "order": {"type": "integer"}}},
        "domain.Route": {"type": "object", "properties": {
            "id": {"type": "integer"}, "name": {"type": "string"}, "start_location": {"type": "string"},
            "end_location": {"type": "string"}, "distance": {"type": "number"}, "estimated_duration": {"type": "integer"},
            "stations": {"type": "array", "items": {"$ref": "#/definitions/domain.Station"}}}},
        "domain.Location": {"type": "object", "properties": {"latitude": {"type": "number"}, "longitude": {"type": "number"}}},
        "domain.Bus": {"type": "object", "properties": {
            "id": {"type": "integer"}, "plate_number": {"type": "string"}, "route": {"type": "integer"},
            "capacity": {"type": "integer"}, "price_per_seat": {"type": "string", "example": "100.00"},
            "student_discount": {"type": "integer"}, "departure_time": {"type": "string", "example": "08:00"},
            "arrival_time": {"type": "string", "example": "12:30"}, "status": {"type": "string", "enum": ["active", "inactive"]},
            "current_location": {"$ref": "#/definitions/domain.Location"}}},
        "domain.BusWithAvailability": {"allOf": [{"$ref": "#/definitions/domain.Bus"},
            {"type": "object", "properties": {"available_seats": {"type": "integer"}}}]},
        "domain.SeatWithBooking": {"type": "object", "properties": {
            "id": {"type": "integer"}, "bus": {"type": "integer"}, "seat_number": {"type": "string"},
            "is_available": {"type": "boolean"}, "is_reserved": {"type": "boolean"}, "booked": {"type": "boolean"}}},
        "domain.PassengerInfo": {"type": "object", "properties": {
            "name": {"type": "string"}, "phone": {"type": "string"}, "email": {"type": "string"},
            "passengerType": {"type": "string", "enum": ["adult", "student"]},
            "seatId": {"type": "integer"}, "seatNumber": {"type": "string"}}},
        "domain.Booking": {"type": "object", "properties": {
            "id": {"type": "string", "format": "uuid"}, "user": {"type": "integer"}, "bus": {"type": "integer"},
            "travel_date": {"type": "string", "example": "2025-06-01"}, "seats": {"type": "array", "items": {"type": "integer"}},
            "total_price": {"type": "string", "example": "180.00"},
            "passenger_info": {"type": "array", "items": {"$ref": "#/definitions/domain.PassengerInfo"}},
            "status": {"type": "string", "enum": ["pending", "confirmed", "cancelled", "completed"]},
            "booking_date": {"type": "string"}, "receipt_id": {"type": "string", "example": "RCP-0A1B2C3D4E"}}},
        "domain.LocationUpdate": {"type": "object", "properties": {
            "bus_id": {"type": "integer"}, "conductor_id": {"type": "integer"},
            "location": {"$ref": "#/definitions/domain.Location"}, "recorded_at": {"type": "string"}}},
        "httpgin.SeatPassenger": {"type": "object", "required": ["seat_id"], "properties": {
            "seat_id": {"type": "integer"}, "passenger": {"$ref": "#/definitions/domain.PassengerInfo"}}},
        "httpgin.CreateBookingRequest": {"type": "object", "required": ["bus", "travel_date"], "properties": {
            "bus": {"type": "integer"}, "travel_date": {"type": "string", "example": "2025-06-01"},
            "seats": {"type": "array", "items": {"$ref": "#/definitions/httpgin.SeatPassenger"}},
            "seat_ids": {"type": "array", "items": {"type": "integer"}},
            "passenger_info": {"type": "array", "items": {"$ref": "#/definitions/domain.PassengerInfo"}}}},
        "httpgin.UpdateLocationRequest": {"type": "object", "required": ["latitude", "longitude"], "properties": {
            "latitude": {"type": "number"}, "longitude": {"type": "number"}}},
        "httpgin.UpdateStatusRequest": {"type": "object", "required": ["status"], "properties": {
            "status": {"type": "string", "enum": ["pending", "confirmed", "cancelled", "completed"]}}},
        "httpgin.AvailabilityResponse": {"type": "object", "properties": {
            "bus": {"type": "integer"}, "travel_date": {"type": "string"}, "available_seats": {"type": "integer"}}},
        "httpgin.ErrorResponse": {"type": "object", "properties": {
            "error": {"type": "string"}, "message": {"type": "string"}, "code": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Dirabus API",
	Description:      "Bus ticket reservation backend.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
