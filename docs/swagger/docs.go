// Package swagger registers the OpenAPI document served under /docs
package swagger

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
    "paths": {
        "/health": {
            "get": {
                "description": "Reports the status of the database, the geocoding cache and the worker pool",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}},
                    "503": {"description": "Database unavailable", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        },
        "/version": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Build information",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/version.Info"}}
                }
            }
        },
        "/api/v1/categories": {
            "get": {
                "description": "Lists the vehicle categories accepted by route searches",
                "produces": ["application/json"],
                "tags": ["categories"],
                "summary": "Vehicle categories",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.CategoriesResponse"}}
                }
            }
        },
        "/api/v1/geocode": {
            "post": {
                "description": "Resolves free text into candidate places",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["geocode"],
                "summary": "Geocode a place",
                "parameters": [
                    {"description": "Lookup parameters", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.GeocodeRequest"}}
                ],
                "responses": {
                    "200": {"description": "Candidate places", "schema": {"$ref": "#/definitions/types.GeocodeResponse"}},
                    "400": {"description": "Query missing or too short", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Provider rate limit", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Geocoding provider failure", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "504": {"description": "Geocoding provider timed out", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/routes": {
            "get": {
                "description": "Lists recent route searches, newest first",
                "produces": ["application/json"],
                "tags": ["routes"],
                "summary": "List route searches",
                "parameters": [
                    {"enum": ["pending", "processing", "completed", "failed"], "type": "string", "description": "Filter by status", "name": "status", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Maximum results (1-100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.RouteSearchListResponse"}},
                    "400": {"description": "Invalid parameters", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Validates the selection and queues the route estimation",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["routes"],
                "summary": "Start a route search",
                "parameters": [
                    {"description": "Origin, destination and vehicle category", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.RouteRequest"}}
                ],
                "responses": {
                    "202": {"description": "Route search queued", "schema": {"$ref": "#/definitions/types.RouteAcceptedResponse"}},
                    "400": {"description": "Incomplete or invalid selection", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/routes/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["routes"],
                "summary": "Get a route search",
                "parameters": [
                    {"type": "string", "description": "Route search ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.RouteSearchResponse"}},
                    "404": {"description": "Route search not found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            },
            "delete": {
                "description": "Deletes the route search and cancels its job if it has not run yet",
                "tags": ["routes"],
                "summary": "Reset a route search",
                "parameters": [
                    {"type": "string", "description": "Route search ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "Route search reset"},
                    "404": {"description": "Route search not found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/v1/planner/ws": {
            "get": {
                "description": "Upgrades to a WebSocket carrying {type, data} messages",
                "tags": ["planner"],
                "summary": "Planner session",
                "responses": {
                    "101": {"description": "Switching protocols"},
                    "503": {"description": "Planner unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "error": {"type": "string"},
                "details": {}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "timestamp": {"type": "string"},
                "services": {"type": "object", "additionalProperties": true}
            }
        },
        "version.Info": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "version": {"type": "string"},
                "commit": {"type": "string"},
                "buildDate": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "planner.Category": {
            "type": "object",
            "properties": {
                "value": {"type": "integer"},
                "label": {"type": "string"}
            }
        },
        "types.CategoriesResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "placeholder": {"type": "string"},
                "categories": {"type": "array", "items": {"$ref": "#/definitions/planner.Category"}},
                "count": {"type": "integer"}
            }
        },
        "types.GeocodeRequest": {
            "type": "object",
            "required": ["query"],
            "properties": {
                "query": {"type": "string"},
                "limit": {"type": "integer", "minimum": 1, "maximum": 50}
            }
        },
        "geocoding.Coordinates": {
            "type": "object",
            "properties": {
                "lat": {"type": "number"},
                "lon": {"type": "number"}
            }
        },
        "search.Result": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "coordinates": {"$ref": "#/definitions/geocoding.Coordinates"}
            }
        },
        "types.GeocodeResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "query": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/search.Result"}},
                "count": {"type": "integer"}
            }
        },
        "types.RouteRequest": {
            "type": "object",
            "required": ["locationFrom", "locationTo", "category"],
            "properties": {
                "locationFrom": {"type": "array", "items": {"type": "number"}, "description": "[lon, lat]"},
                "locationTo": {"type": "array", "items": {"type": "number"}, "description": "[lon, lat]"},
                "category": {"type": "integer", "minimum": 0, "maximum": 4},
                "fromTitle": {"type": "string"},
                "toTitle": {"type": "string"}
            }
        },
        "types.RouteAcceptedResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "id": {"type": "string"},
                "routeStatus": {"type": "string"}
            }
        },
        "types.RouteSearch": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status": {"type": "string"},
                "locationFrom": {"type": "array", "items": {"type": "number"}},
                "locationTo": {"type": "array", "items": {"type": "number"}},
                "fromTitle": {"type": "string"},
                "toTitle": {"type": "string"},
                "category": {"type": "integer"},
                "categoryLabel": {"type": "string"},
                "distanceKm": {"type": "number"},
                "durationMinutes": {"type": "number"},
                "error": {"type": "string"},
                "createdAt": {"type": "string"},
                "completedAt": {"type": "string"}
            }
        },
        "types.RouteSearchResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "routeSearch": {"$ref": "#/definitions/types.RouteSearch"}
            }
        },
        "types.RouteSearchListResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "routeSearches": {"type": "array", "items": {"$ref": "#/definitions/types.RouteSearch"}},
                "count": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Route Planner API",
	Description:      "Place search, vehicle categories and asynchronous route estimation",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
