// Package openapi embeds the OpenAPI document describing the contact HTTP API.
package openapi

import _ "embed"

// ContentType is the media type the document is served with.
const ContentType = "application/yaml"

//go:embed contactbook.yaml
var document []byte

// Spec returns a copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), document...)
}
