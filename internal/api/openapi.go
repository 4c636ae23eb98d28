package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/lectern/internal/config"
	"github.com/JaimeStill/lectern/internal/uploads"
	"github.com/JaimeStill/lectern/pkg/openapi"
	"github.com/JaimeStill/lectern/pkg/routes"
)

var i18nSpec = struct {
	languages *openapi.Operation
	table     *openapi.Operation
}{
	languages: &openapi.Operation{
		Summary:     "List languages",
		Description: "Returns the available languages and the one negotiated from Accept-Language and the language cookie.",
		Tags:        []string{"I18n"},
		Responses: map[int]*openapi.Response{
			http.StatusOK: openapi.ResponseJSON("Languages", openapi.SchemaRef("Languages")),
		},
	},
	table: &openapi.Operation{
		Summary:    "Fetch a translation table",
		Tags:       []string{"I18n"},
		Parameters: []*openapi.Parameter{openapi.StringPathParam("lang", "Language code")},
		Responses: map[int]*openapi.Response{
			http.StatusOK: openapi.ResponseJSON("Nested translation table", &openapi.Schema{
				Type:                 "object",
				AdditionalProperties: &openapi.Schema{},
			}),
			http.StatusNotFound: openapi.ResponseRef("NotFound"),
		},
	},
}

var previewSpec = &openapi.Operation{
	Summary:     "Open a preview",
	Description: "Serves preview bytes under the stored type with nosniff and a sandboxing CSP. Revoked handles return 404.",
	Tags:        []string{"Previews"},
	Parameters:  []*openapi.Parameter{openapi.StringPathParam("handle", "Preview handle")},
	Responses: map[int]*openapi.Response{
		http.StatusOK: {
			Description: "Preview content",
			Content: map[string]*openapi.MediaType{
				"image/*": {Schema: &openapi.Schema{Type: "string", Format: "binary"}},
			},
		},
		http.StatusNotFound: openapi.ResponseRef("NotFound"),
	},
}

// buildSpec documents every route in groups. Paths are relative to the API
// base path, which is the document's only server.
func buildSpec(cfg *config.Config, groups ...routes.Group) (*openapi.Spec, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(uploads.Spec.Schemas())
	spec.Components.AddSchemas(map[string]*openapi.Schema{
		"Languages": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"languages": {Type: "array", Items: &openapi.Schema{Type: "string"}},
				"preferred": {Type: "string"},
			},
		},
	})

	if err := routes.Describe(spec, groups...); err != nil {
		return nil, err
	}
	return spec, nil
}

func specRoutes(cfg *config.Config, groups ...routes.Group) (routes.Group, error) {
	spec, err := buildSpec(cfg, groups...)
	if err != nil {
		return routes.Group{}, err
	}
	data, err := openapi.MarshalJSON(spec)
	if err != nil {
		return routes.Group{}, fmt.Errorf("marshal openapi: %w", err)
	}
	return routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/openapi.json", Handler: openapi.ServeSpec(data)},
		},
	}, nil
}
