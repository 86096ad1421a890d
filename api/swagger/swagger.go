package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Caseflow API",
        "description": "Coordinator for multi-stage document processing: cases, OCR jobs and lease-based extraction",
        "version": "1.0.0"
    },
    "basePath": "/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "auth", "description": "Worker authentication"},
        {"name": "cases", "description": "Case lifecycle"},
        {"name": "documents", "description": "Documents attached to cases"},
        {"name": "jobs", "description": "Batch OCR jobs"},
        {"name": "leases", "description": "Lease-based extraction coordination"},
        {"name": "extraction", "description": "Administrative extraction corrections"},
        {"name": "notifications", "description": "Lifecycle event log and stream"},
        {"name": "system", "description": "Health and statistics"}
    ],
    "paths": {
        "/auth/token": {
            "post": {
                "tags": ["auth"],
                "summary": "Exchange worker credentials for a bearer token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/workers": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a worker identity (operator only)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterWorkerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases": {
            "get": {
                "tags": ["cases"],
                "summary": "List cases with keyset pagination",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "cursor", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["cases"],
                "summary": "Create a case",
                "parameters": [
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCaseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases/{id}": {
            "get": {
                "tags": ["cases"],
                "summary": "Get a case with its documents",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["cases"],
                "summary": "Update producer-mutable case fields",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCaseRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["cases"],
                "summary": "Cancel a case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal transition"}
                }
            }
        },
        "/cases/{id}/reopen": {
            "patch": {
                "tags": ["cases"],
                "summary": "Reopen a case for extraction (operator override)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases/{id}/documents": {
            "get": {
                "tags": ["documents"],
                "summary": "List documents attached to a case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["documents"],
                "summary": "Attach a document to a case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDocumentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases/ready": {
            "get": {
                "tags": ["leases"],
                "summary": "Preview claimable cases without leasing them",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases/claims": {
            "post": {
                "tags": ["leases"],
                "summary": "Atomically claim a batch of cases under a lease",
                "parameters": [
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ClaimRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases/{id}/lease/extend": {
            "patch": {
                "tags": ["leases"],
                "summary": "Extend an owned lease",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/LeaseExtensionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No active lease or lease conflict"}
                }
            }
        },
        "/cases/{id}/lease/release": {
            "patch": {
                "tags": ["leases"],
                "summary": "Release an owned lease and requeue the case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No active lease or lease conflict"}
                }
            }
        },
        "/cases/{id}/extraction-status": {
            "patch": {
                "tags": ["leases"],
                "summary": "Report the extraction outcome for an owned case",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExtractionUpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No active lease or lease conflict"}
                }
            }
        },
        "/cases/extraction-status/bulk": {
            "patch": {
                "tags": ["extraction"],
                "summary": "Apply extraction-status corrections to many cases at once",
                "parameters": [
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkExtractionUpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-item outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cases/export": {
            "get": {
                "tags": ["cases"],
                "summary": "Export cases as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/jobs": {
            "get": {
                "tags": ["jobs"],
                "summary": "List jobs with keyset pagination",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "cursor", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["jobs"],
                "summary": "Start a batch OCR job over one or more cases",
                "parameters": [
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateJobRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{id}": {
            "get": {
                "tags": ["jobs"],
                "summary": "Get a job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["jobs"],
                "summary": "Cancel a pending or running job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{id}/progress": {
            "patch": {
                "tags": ["jobs"],
                "summary": "Record OCR progress for a job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JobProgressRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{id}/complete": {
            "post": {
                "tags": ["jobs"],
                "summary": "Mark a job completed and its cases ready for extraction",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/JobCompleteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{id}/fail": {
            "post": {
                "tags": ["jobs"],
                "summary": "Mark a job failed",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JobFailRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{id}": {
            "get": {
                "tags": ["documents"],
                "summary": "Get a document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/{id}/result": {
            "patch": {
                "tags": ["documents"],
                "summary": "Record the OCR outcome for a document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DocumentResultRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["notifications"],
                "summary": "List the lifecycle notification log",
                "parameters": [
                    {"name": "event_type", "in": "query", "type": "string"},
                    {"name": "cursor", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/stream": {
            "get": {
                "tags": ["notifications"],
                "summary": "Subscribe to live lifecycle events over websocket",
                "responses": {
                    "101": {"description": "Switching protocols"}
                }
            }
        },
        "/webhooks/test": {
            "post": {
                "tags": ["notifications"],
                "summary": "Record a test webhook delivery",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/webhooks/history": {
            "get": {
                "tags": ["notifications"],
                "summary": "List recent test webhook receipts",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["system"],
                "summary": "Service health with store totals",
                "responses": {
                    "200": {"description": "Healthy"},
                    "503": {"description": "Unhealthy"}
                }
            }
        },
        "/stats": {
            "get": {
                "tags": ["system"],
                "summary": "Per-status entity breakdowns",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Case": {
            "type": "object",
            "properties": {
                "case_id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string"},
                "extraction_status": {"type": "string"},
                "metadata": {"type": "object"},
                "priority": {"type": "integer"},
                "lease_holder": {"type": "string"},
                "lease_expires_at": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "CreateCaseRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "metadata": {"type": "object"},
                "priority": {"type": "integer", "minimum": 1, "maximum": 10}
            },
            "required": ["name"]
        },
        "UpdateCaseRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "metadata": {"type": "object"},
                "priority": {"type": "integer", "minimum": 1, "maximum": 10}
            }
        },
        "CreateDocumentRequest": {
            "type": "object",
            "properties": {
                "filename": {"type": "string"},
                "url": {"type": "string"},
                "metadata": {"type": "object"}
            },
            "required": ["filename"]
        },
        "DocumentResultRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["processing", "completed", "failed"]},
                "ocr_result": {"type": "object"}
            },
            "required": ["status"]
        },
        "CreateJobRequest": {
            "type": "object",
            "properties": {
                "case_ids": {"type": "array", "items": {"type": "string"}},
                "language": {"type": "string"},
                "enable_handwriting_detection": {"type": "boolean"},
                "priority": {"type": "integer", "minimum": 1, "maximum": 10}
            },
            "required": ["case_ids"]
        },
        "JobProgressRequest": {
            "type": "object",
            "properties": {
                "progress": {"type": "number", "minimum": 0, "maximum": 1},
                "message": {"type": "string"}
            },
            "required": ["progress"]
        },
        "JobCompleteRequest": {
            "type": "object",
            "properties": {
                "results": {"type": "object"}
            }
        },
        "JobFailRequest": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            },
            "required": ["error"]
        },
        "ClaimRequest": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer", "minimum": 1, "maximum": 100},
                "lease_duration_minutes": {"type": "integer", "minimum": 1, "maximum": 1440}
            }
        },
        "LeaseExtensionRequest": {
            "type": "object",
            "properties": {
                "duration_minutes": {"type": "integer", "minimum": 1, "maximum": 1440}
            }
        },
        "ExtractionUpdateRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["succeeded", "failed"]},
                "metadata": {"type": "object"},
                "error_message": {"type": "string"}
            },
            "required": ["status"]
        },
        "BulkExtractionUpdateRequest": {
            "type": "object",
            "properties": {
                "updates": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "case_id": {"type": "string"},
                            "status": {"type": "string"},
                            "metadata": {"type": "object"},
                            "error_message": {"type": "string"}
                        },
                        "required": ["case_id", "status"]
                    }
                }
            },
            "required": ["updates"]
        },
        "TokenRequest": {
            "type": "object",
            "properties": {
                "worker_id": {"type": "string"},
                "secret": {"type": "string"}
            },
            "required": ["worker_id", "secret"]
        },
        "RegisterWorkerRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "secret": {"type": "string"},
                "role": {"type": "string", "enum": ["worker", "operator"]}
            },
            "required": ["name", "secret"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "next_cursor": {"type": "string"},
                "has_more": {"type": "boolean"},
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
