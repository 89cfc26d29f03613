package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Assessment Status API",
        "description": "Per-student assessment status statistics backed by a cache-aside store",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Assessments", "description": "Due-soon counts and submission summaries per student"},
        {"name": "Observability", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready or degraded"},
                    "503": {"description": "A required dependency is unavailable"}
                }
            }
        },
        "/metrics/system": {
            "get": {
                "tags": ["Observability"],
                "summary": "System metrics snapshot",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessments/due-soon": {
            "get": {
                "tags": ["Assessments"],
                "summary": "Count assessments due soon",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "userId", "in": "query", "required": true, "type": "string", "description": "Moodle user ID"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DueSoonEnvelope"}},
                    "400": {"description": "Invalid user ID", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessments/summary": {
            "get": {
                "tags": ["Assessments"],
                "summary": "Submission and marking summary",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "userId", "in": "query", "required": true, "type": "string", "description": "Moodle user ID"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SummaryEnvelope"}},
                    "400": {"description": "Invalid user ID", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessments/summary-by-type": {
            "get": {
                "tags": ["Assessments"],
                "summary": "Summary grouped by assessment type",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "userId", "in": "query", "required": true, "type": "string", "description": "Moodle user ID"},
                    {"name": "charttype", "in": "query", "required": true, "type": "integer", "enum": [0, 1, 2, 3, 4], "description": "0 all, 1 assign, 2 quiz, 3 workshop, 4 forum"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SummaryByTypeEnvelope"}},
                    "400": {"description": "Invalid user ID or chart type", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseMeta": {
            "type": "object",
            "properties": {
                "cache_hit": {"type": "boolean"},
                "processing_time_ms": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"$ref": "#/definitions/ResponseMeta"}
            }
        },
        "DueSoon": {
            "type": "object",
            "properties": {
                "24hours": {"type": "integer"},
                "week": {"type": "integer"},
                "month": {"type": "integer"}
            }
        },
        "Summary": {
            "type": "object",
            "properties": {
                "sub_assess": {"type": "integer"},
                "tobe_sub": {"type": "integer"},
                "overdue": {"type": "integer"},
                "assess_marked": {"type": "integer"}
            }
        },
        "SummaryByType": {
            "type": "object",
            "properties": {
                "result": {"type": "string", "description": "JSON encoded {charttype, types[{type, sub_assess, tobe_sub, overdue, assess_marked}]}"}
            }
        },
        "DueSoonEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/DueSoon"},
                "meta": {"$ref": "#/definitions/ResponseMeta"}
            }
        },
        "SummaryEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/Summary"},
                "meta": {"$ref": "#/definitions/ResponseMeta"}
            }
        },
        "SummaryByTypeEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/SummaryByType"},
                "meta": {"$ref": "#/definitions/ResponseMeta"}
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
