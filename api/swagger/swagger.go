package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Exam Scheduler API",
        "description": "Builds conflict-free exam timetables and seating plans.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Exams", "description": "Solving, background jobs and stored schedules"},
        {"name": "Datasets", "description": "Stored dataset snapshots"},
        {"name": "Exports", "description": "Signed export downloads"},
        {"name": "Metrics", "description": "Solver and cache counters"}
    ],
    "paths": {
        "/exams/solve": {
            "post": {
                "tags": ["Exams"],
                "summary": "Solve synchronously",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SolveRequest"}}
                ],
                "responses": {
                    "200": {"description": "Solved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or no data", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Solver busy or solve cancelled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No feasible schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Time or iteration budget exhausted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/jobs": {
            "post": {
                "tags": ["Exams"],
                "summary": "Submit a background solve",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SolveRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/jobs/{id}": {
            "get": {
                "tags": ["Exams"],
                "summary": "Job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/jobs/{id}/stop": {
            "post": {
                "tags": ["Exams"],
                "summary": "Request a running job to stop",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Stop requested", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Job already finished", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/jobs/{id}/export": {
            "get": {
                "tags": ["Exams"],
                "summary": "Export a finished job result",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "view", "in": "query", "type": "string", "enum": ["timetable", "seats"]}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "409": {"description": "Job not finished or unsolved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/schedules": {
            "get": {
                "tags": ["Exams"],
                "summary": "List stored schedules",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/schedules/{id}": {
            "get": {
                "tags": ["Exams"],
                "summary": "Get a stored schedule with placements and seats",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Exams"],
                "summary": "Delete a stored schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams/schedules/{id}/export": {
            "get": {
                "tags": ["Exams"],
                "summary": "Export a stored schedule",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "view", "in": "query", "type": "string", "enum": ["timetable", "seats"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/exams/schedules/{id}/publish": {
            "post": {
                "tags": ["Exams"],
                "summary": "Store an export and return a signed download link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "view", "in": "query", "type": "string", "enum": ["timetable", "seats"]}
                ],
                "responses": {
                    "201": {"description": "Published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Export storage disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/datasets/{slot}": {
            "get": {
                "tags": ["Datasets"],
                "summary": "Get a stored dataset",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "slot", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Empty slot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Datasets"],
                "summary": "Replace a stored dataset",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "slot", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DatasetInput"}}
                ],
                "responses": {
                    "200": {"description": "Saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Datasets"],
                "summary": "Clear a stored dataset",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "slot", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "Cleared"}
                }
            }
        },
        "/datasets/{slot}/diff": {
            "post": {
                "tags": ["Datasets"],
                "summary": "Compare a dataset with a stored slot",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "slot", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DatasetInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a published export",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Link expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Solver and cache counters",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ClassroomInput": {
            "type": "object",
            "required": ["code"],
            "properties": {
                "code": {"type": "string"},
                "capacity": {"type": "integer"}
            }
        },
        "CourseInput": {
            "type": "object",
            "required": ["code"],
            "properties": {
                "code": {"type": "string"},
                "duration": {"type": "integer", "description": "Minutes; zero means one slot"},
                "students": {"type": "array", "items": {"type": "string"}}
            }
        },
        "DatasetInput": {
            "type": "object",
            "required": ["classrooms"],
            "properties": {
                "classrooms": {"type": "array", "items": {"$ref": "#/definitions/ClassroomInput"}},
                "courses": {"type": "array", "items": {"$ref": "#/definitions/CourseInput"}},
                "students": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SolveOptions": {
            "type": "object",
            "properties": {
                "numDays": {"type": "integer"},
                "slotsPerDay": {"type": "integer"},
                "slotMinutes": {"type": "integer"},
                "timeLimitSeconds": {"type": "integer"},
                "maxIterations": {"type": "integer"},
                "shuffle": {"type": "boolean"},
                "seed": {"type": "integer"},
                "retries": {"type": "integer"}
            }
        },
        "SolveRequest": {
            "type": "object",
            "properties": {
                "dataset": {"$ref": "#/definitions/DatasetInput"},
                "datasetSlot": {"type": "integer"},
                "options": {"$ref": "#/definitions/SolveOptions"},
                "persist": {"type": "boolean"}
            }
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
