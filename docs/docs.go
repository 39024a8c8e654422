// Package docs carries the static OpenAPI document served to Swagger UI.
package docs

import _ "embed"

//go:embed openapi.json
var OpenAPI []byte
