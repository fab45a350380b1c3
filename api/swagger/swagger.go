package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendance Core API",
        "description": "Timetable projection, token check-in, schedule reconciliation, and risk rosters",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Sessions", "description": "Session lifecycle and check-in tokens"},
        {"name": "CheckIn", "description": "Token validation and attendance corrections"},
        {"name": "Schedule", "description": "Reconciled schedule views"},
        {"name": "Risk", "description": "Attendance risk classification and rosters"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/sessions": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Create a session manually or mark a free period",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{slotId}/{date}/token": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Issue a check-in token for a slot occurrence",
                "parameters": [
                    {"name": "slotId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/IssueTokenBody"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Session closed"}
                }
            }
        },
        "/sessions/{slotId}/{date}/close": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Close a session and revoke its active token",
                "parameters": [
                    {"name": "slotId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tokens/{tokenId}": {
            "delete": {
                "tags": ["Sessions"],
                "summary": "Revoke a check-in token",
                "parameters": [
                    {"name": "tokenId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/checkin": {
            "post": {
                "tags": ["CheckIn"],
                "summary": "Validate a presented check-in token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckInBody"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Session closed"},
                    "410": {"description": "Token expired"}
                }
            }
        },
        "/attendance/override": {
            "post": {
                "tags": ["CheckIn"],
                "summary": "Administrative correction of a stored attendance record",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OverrideRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/schedule": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Reconciled schedule for a student or class over a date range",
                "parameters": [
                    {"name": "subject", "in": "query", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "required": true, "type": "string"},
                    {"name": "to", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/risk": {
            "get": {
                "tags": ["Risk"],
                "summary": "Risk profile for a single student over the trailing window",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/risk-roster": {
            "get": {
                "tags": ["Risk"],
                "summary": "Students of a class or mentor grouped by risk tier",
                "parameters": [
                    {"name": "scope", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateSessionRequest": {
            "type": "object",
            "required": ["slot_id", "date", "method"],
            "properties": {
                "slot_id": {"type": "string"},
                "date": {"type": "string"},
                "method": {"type": "string", "enum": ["MANUAL", "FREE_PERIOD"]}
            }
        },
        "IssueTokenBody": {
            "type": "object",
            "properties": {
                "validity_minutes": {"type": "integer"}
            }
        },
        "CheckInBody": {
            "type": "object",
            "required": ["token_id", "student_id"],
            "properties": {
                "token_id": {"type": "string"},
                "student_id": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "OverrideRequest": {
            "type": "object",
            "required": ["session_id", "student_id", "status"],
            "properties": {
                "session_id": {"type": "string"},
                "student_id": {"type": "string"},
                "status": {"type": "string", "enum": ["PRESENT", "LATE", "ABSENT"]}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
