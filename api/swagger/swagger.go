package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ATC Endorsement API",
        "description": "Endorsement lifecycle, activity sync and waiting-list management",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Endorsements", "description": "Endorsement roster and grants"},
        {"name": "WaitingList", "description": "Course waiting-list state machine"},
        {"name": "Audit", "description": "Append-only audit trail"}
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
        "/endorsements": {
            "get": {
                "tags": ["Endorsements"],
                "summary": "List endorsements",
                "parameters": [
                    {"name": "controllerId", "in": "query", "type": "string"},
                    {"name": "position", "in": "query", "type": "string"},
                    {"name": "tier", "in": "query", "type": "string"},
                    {"name": "state", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Endorsements"],
                "summary": "Grant endorsement",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GrantEndorsementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/endorsements/{id}": {
            "get": {
                "tags": ["Endorsements"],
                "summary": "Get endorsement",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/waiting-list": {
            "get": {
                "tags": ["WaitingList"],
                "summary": "List waiting-list entries",
                "parameters": [
                    {"name": "traineeId", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "claimantId", "in": "query", "type": "string"},
                    {"name": "state", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["WaitingList"],
                "summary": "Join a course waiting list",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JoinRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/waiting-list/{id}": {
            "delete": {
                "tags": ["WaitingList"],
                "summary": "Leave the waiting list",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/waiting-list/{id}/claim": {
            "post": {
                "tags": ["WaitingList"],
                "summary": "Claim an entry for mentoring",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already claimed"}
                }
            }
        },
        "/waiting-list/{id}/release": {
            "post": {
                "tags": ["WaitingList"],
                "summary": "Release a claimed entry",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/waiting-list/{id}/start-training": {
            "post": {
                "tags": ["WaitingList"],
                "summary": "Move a claimed entry into training",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/waiting-list/{id}/remarks": {
            "patch": {
                "tags": ["WaitingList"],
                "summary": "Update entry remarks",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RemarksRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit-logs": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit entries",
                "parameters": [
                    {"name": "actorId", "in": "query", "type": "string"},
                    {"name": "subjectKind", "in": "query", "type": "string"},
                    {"name": "subjectId", "in": "query", "type": "string"},
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit-logs/subject/{kind}/{id}": {
            "get": {
                "tags": ["Audit"],
                "summary": "Full trail for one subject",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit-logs/export": {
            "post": {
                "tags": ["Audit"],
                "summary": "Export the filtered audit trail",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit-logs/export/{token}": {
            "get": {
                "tags": ["Audit"],
                "summary": "Download a stored export",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File contents"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "Endorsement": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "controller_id": {"type": "string"},
                "position": {"type": "string"},
                "tier": {"type": "string"},
                "state": {"type": "string"},
                "granted_at": {"type": "string"},
                "last_warned_at": {"type": "string"},
                "removed_at": {"type": "string"},
                "activity_minutes": {"type": "integer"},
                "last_synced_at": {"type": "string"},
                "last_active_at": {"type": "string"}
            }
        },
        "WaitingListEntry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "trainee_id": {"type": "string"},
                "course_id": {"type": "string"},
                "state": {"type": "string"},
                "claimant_id": {"type": "string"},
                "remarks": {"type": "string"},
                "joined_at": {"type": "string"},
                "left_at": {"type": "string"}
            }
        },
        "GrantEndorsementRequest": {
            "type": "object",
            "properties": {
                "controller_id": {"type": "string"},
                "position": {"type": "string"},
                "tier": {"type": "string", "enum": ["TIER1", "TIER2"]}
            },
            "required": ["controller_id", "position", "tier"]
        },
        "JoinRequest": {
            "type": "object",
            "properties": {
                "trainee_id": {"type": "string"},
                "course_id": {"type": "string"},
                "remarks": {"type": "string"}
            },
            "required": ["trainee_id", "course_id"]
        },
        "RemarksRequest": {
            "type": "object",
            "properties": {
                "remarks": {"type": "string"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "actor_id": {"type": "string"},
                "subject_kind": {"type": "string"},
                "subject_id": {"type": "string"},
                "action": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            },
            "required": ["format"]
        },
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
