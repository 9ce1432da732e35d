package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"

	"github.com/zenGate-Global/palmyra-tenancy/platform/go/problems"
)

const docName = "palmyra"

const swaggerUITemplate = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Palmyra Tenancy API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({url: '__SPEC_URL__', dom_id: '#swagger-ui', deepLinking: true});
    </script>
  </body>
</html>`

// registerDocsRoutes serves the Swagger UI and the contract as JSON. The contract is
// marshalled once; a contract that cannot be marshalled fails startup.
func registerDocsRoutes(router chi.Router, spec *openapi3.T) error {
	doc, err := spec.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal openapi %s: %w", docName, err)
	}

	ui := strings.Replace(swaggerUITemplate, "__SPEC_URL__", fmt.Sprintf("/openapi/%s.json", docName), 1)
	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(ui))
	})

	router.Get("/openapi/{name}.json", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "name") != docName {
			problems.Write(w, problems.New("Not Found", "unknown contract", problems.TypeNotFound, http.StatusNotFound, nil))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_, _ = w.Write(doc)
	})
	return nil
}
