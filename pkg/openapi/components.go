package openapi

import "maps"

// NewComponents creates Components with the pagination schema and the
// shared error responses. Every error response has the {"error": "..."}
// body written by the handlers package.
func NewComponents() *Components {
	return &Components{
		Schemas: map[string]*Schema{
			"Error": {
				Type:     "object",
				Required: []string{"error"},
				Properties: map[string]*Schema{
					"error": {Type: "string", Description: "Error message"},
				},
			},
			"PageRequest": {
				Type: "object",
				Properties: map[string]*Schema{
					"page":      {Type: "integer", Description: "Page number (1-indexed)", Example: 1},
					"page_size": {Type: "integer", Description: "Results per page", Example: 20},
				},
			},
		},
		Responses: map[string]*Response{
			"BadRequest":          errorResponse("Invalid request"),
			"Unauthorized":        errorResponse("No signed-in identity"),
			"NotFound":            errorResponse("Resource not found"),
			"Conflict":            errorResponse("Request conflicts with the current state"),
			"PayloadTooLarge":     errorResponse("Request body exceeds the upload limit"),
			"UnprocessableEntity": errorResponse("Request is well formed but rejected"),
		},
	}
}

func errorResponse(description string) *Response {
	return ResponseJSON(description, SchemaRef("Error"))
}

// AddSchemas merges the given schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// AddResponses merges the given responses into the component responses.
func (c *Components) AddResponses(responses map[string]*Response) {
	maps.Copy(c.Responses, responses)
}
