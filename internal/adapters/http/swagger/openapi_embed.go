package swagger

import _ "embed"

// OpenAPI contains the embedded OpenAPI YAML specification.
//
//go:embed openapi.yaml
var OpenAPI []byte

// redocScriptURL is the pinned ReDoc standalone bundle.
const redocScriptURL = "https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"
