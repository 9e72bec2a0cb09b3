package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SJD Grievance Portal API",
        "description": "Backend for the social justice department grievance portal",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Signup, login and session management"},
        {"name": "Public", "description": "Unauthenticated complaint tracking"},
        {"name": "Complaints", "description": "Complaint ledger and forwarding"},
        {"name": "Assignments", "description": "DM field visit assignments"},
        {"name": "Users", "description": "Superadmin account console"},
        {"name": "Archives", "description": "Deleted account snapshots"},
        {"name": "Dashboard", "description": "Role-specific summaries"},
        {"name": "Reports", "description": "Register exports"}
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
        "/public/complaints": {
            "post": {
                "summary": "File a complaint without an account",
                "tags": ["Public"],
                "responses": {
                    "201": {"description": "Complaint filed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing citizen name or mobile"}
                }
            }
        },
        "/public/complaints/{mobile}": {
            "get": {
                "summary": "List anonymously filed complaints by mobile number",
                "tags": ["Public"],
                "parameters": [
                    {"name": "mobile", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Matching complaints", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/public/track/{trackingId}": {
            "get": {
                "summary": "Track a complaint by its tracking ID",
                "tags": ["Public"],
                "parameters": [
                    {"name": "trackingId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Complaint status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown tracking ID"}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
