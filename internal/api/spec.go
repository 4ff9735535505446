// Package api embeds the OpenAPI document for the payments HTTP surface and
// publishes it for request validation and the Swagger endpoint.
package api

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var rawSpec []byte

var loadSwagger = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return doc, nil
})

// GetSwagger returns the parsed OpenAPI document. The document is parsed once
// and shared; callers must not mutate it.
func GetSwagger() (*openapi3.T, error) {
	return loadSwagger()
}
