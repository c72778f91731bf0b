// Package docs registers the OpenAPI document served at /docs/doc.json.
// Regenerate with: swag init -g cmd/api/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Botiquin"
        },
        "license": {
            "name": "MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/intakes": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["intakes"],
                "summary": "Register dose taken",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/push/subscriptions": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["push"],
                "summary": "Register a Web Push subscription",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/push/subscriptions/{subscriptionID}": {
            "delete": {
                "tags": ["push"],
                "summary": "Remove a Web Push subscription",
                "parameters": [
                    {"type": "string", "name": "subscriptionID", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/push/vapid": {
            "get": {
                "produces": ["application/json"],
                "tags": ["push"],
                "summary": "VAPID public key",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Push disabled"}
                }
            }
        },
        "/reminders/run": {
            "post": {
                "produces": ["application/json"],
                "tags": ["reminders"],
                "summary": "Run one scheduler pass",
                "responses": {
                    "200": {"description": "OK"},
                    "500": {"description": "Pass failed"}
                }
            }
        },
        "/users/{userID}/preferences": {
            "get": {
                "produces": ["application/json"],
                "tags": ["preferences"],
                "summary": "Get notification preferences",
                "parameters": [
                    {"type": "string", "name": "userID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "tags": ["preferences"],
                "summary": "Update notification preferences",
                "parameters": [
                    {"type": "string", "name": "userID", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8000",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Botiquin Data API",
	Description:      "Household medication management backend: dose reminder scheduling, Web Push delivery, notification preferences, and intake registration.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
