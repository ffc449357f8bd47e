//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "chatd/docs"
)

const swaggerUIPath = "/swagger/index.html"

// MountSwagger serves the Swagger UI and the generated OpenAPI document under
// /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
