package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/swaggo/swag"
)

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Storefront Payments API",
	Description:      "PayPal checkout, capture, webhook intake and payment administration.",
	InfoInstanceName: "swagger",
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterDocs publishes the embedded document with swag. Safe to call more
// than once.
func RegisterDocs() error {
	registerOnce.Do(func() {
		doc, err := GetSwagger()
		if err != nil {
			registerErr = err
			return
		}
		encoded, err := doc.MarshalJSON()
		if err != nil {
			registerErr = fmt.Errorf("encode openapi document: %w", err)
			return
		}
		SwaggerInfo.SwaggerTemplate = string(encoded)
		swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
	})
	return registerErr
}

// RegisterDocsRoutes serves the registered document at /swagger/doc.json.
func RegisterDocsRoutes(mux *http.ServeMux) error {
	if err := RegisterDocs(); err != nil {
		return err
	}
	mux.HandleFunc("GET /swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	})
	return nil
}
