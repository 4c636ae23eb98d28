package uploads

import (
	"net/http"

	"github.com/JaimeStill/lectern/pkg/openapi"
)

type spec struct {
	Create         *openapi.Operation
	List           *openapi.Operation
	Find           *openapi.Operation
	Close          *openapi.Operation
	Add            *openapi.Operation
	Clear          *openapi.Operation
	Update         *openapi.Operation
	Remove         *openapi.Operation
	Content        *openapi.Operation
	Ready          *openapi.Operation
	OpenCrop       *openapi.Operation
	CropState      *openapi.Operation
	SetCropDisplay *openapi.Operation
	SelectCrop     *openapi.Operation
	CommitCrop     *openapi.Operation
	ApplyCrop      *openapi.Operation
	CancelCrop     *openapi.Operation
}

// Spec documents the session routes.
var Spec = spec{
	Create: &openapi.Operation{
		Summary: "Open an upload session",
		Tags:    []string{"Sessions"},
		Responses: map[int]*openapi.Response{
			http.StatusCreated: openapi.ResponseJSON("Session opened", openapi.SchemaRef("Session")),
		},
	},
	List: &openapi.Operation{
		Summary: "List the caller's sessions",
		Tags:    []string{"Sessions"},
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("search", "string", "Case-insensitive match against file names", false),
		},
		Responses: map[int]*openapi.Response{
			http.StatusOK: openapi.ResponseJSON("Page of sessions", openapi.SchemaRef("SessionPage")),
		},
	},
	Find: &openapi.Operation{
		Summary:    "Find a session",
		Tags:       []string{"Sessions"},
		Parameters: []*openapi.Parameter{sessionParam},
		Responses: map[int]*openapi.Response{
			http.StatusOK:       openapi.ResponseJSON("Session", openapi.SchemaRef("Session")),
			http.StatusNotFound: openapi.ResponseRef("NotFound"),
		},
	},
	Close: &openapi.Operation{
		Summary:     "Close a session",
		Description: "Revokes every outstanding preview. Later requests on the session return 404.",
		Tags:        []string{"Sessions"},
		Parameters:  []*openapi.Parameter{sessionParam},
		Responses: map[int]*openapi.Response{
			http.StatusNoContent: openapi.NoContent("Session closed"),
			http.StatusNotFound:  openapi.ResponseRef("NotFound"),
		},
	},
	Add: &openapi.Operation{
		Summary:     "Add files",
		Description: "Admits files in order until the session is full. Files past the limit are counted in dropped.",
		Tags:        []string{"Files"},
		Parameters:  []*openapi.Parameter{sessionParam},
		RequestBody: &openapi.RequestBody{
			Required: true,
			Content: map[string]*openapi.MediaType{
				"multipart/form-data": {Schema: &openapi.Schema{
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"files": {Type: "array", Items: &openapi.Schema{Type: "string", Format: "binary"}},
					},
				}},
			},
		},
		Responses: map[int]*openapi.Response{
			http.StatusOK:                    openapi.ResponseJSON("Admitted files", openapi.SchemaRef("AddResult")),
			http.StatusBadRequest:            openapi.ResponseRef("BadRequest"),
			http.StatusNotFound:              openapi.ResponseRef("NotFound"),
			http.StatusRequestEntityTooLarge: openapi.ResponseRef("PayloadTooLarge"),
		},
	},
	Clear: &openapi.Operation{
		Summary:    "Remove every file",
		Tags:       []string{"Files"},
		Parameters: []*openapi.Parameter{sessionParam},
		Responses: map[int]*openapi.Response{
			http.StatusNoContent: openapi.NoContent("Files cleared"),
			http.StatusNotFound:  openapi.ResponseRef("NotFound"),
		},
	},
	Update: &openapi.Operation{
		Summary:     "Rename a file",
		Tags:        []string{"Files"},
		Parameters:  []*openapi.Parameter{sessionParam, fileParam},
		RequestBody: openapi.RequestBodyJSON("UpdateRequest", true),
		Responses: map[int]*openapi.Response{
			http.StatusOK:         openapi.ResponseJSON("Updated file", openapi.SchemaRef("File")),
			http.StatusBadRequest: openapi.ResponseRef("BadRequest"),
			http.StatusNotFound:   openapi.ResponseRef("NotFound"),
		},
	},
	Remove: &openapi.Operation{
		Summary:    "Remove a file",
		Tags:       []string{"Files"},
		Parameters: []*openapi.Parameter{sessionParam, fileParam},
		Responses: map[int]*openapi.Response{
			http.StatusNoContent: openapi.NoContent("File removed"),
			http.StatusNotFound:  openapi.ResponseRef("NotFound"),
		},
	},
	Content: &openapi.Operation{
		Summary:     "Download a file's current bytes",
		Description: "Served under the declared type with nosniff and a sandboxing CSP. Only raster images are inline.",
		Tags:        []string{"Files"},
		Parameters:  []*openapi.Parameter{sessionParam, fileParam},
		Responses: map[int]*openapi.Response{
			http.StatusOK: &openapi.Response{
				Description: "File content",
				Content: map[string]*openapi.MediaType{
					"application/octet-stream": {Schema: &openapi.Schema{Type: "string", Format: "binary"}},
				},
			},
			http.StatusNotFound: openapi.ResponseRef("NotFound"),
		},
	},
	Ready: &openapi.Operation{
		Summary:    "List the files last delivered to the upload sink",
		Tags:       []string{"Files"},
		Parameters: []*openapi.Parameter{sessionParam},
		Responses: map[int]*openapi.Response{
			http.StatusOK:       openapi.ResponseJSON("Ready files", openapi.ArrayOf("ReadyFile")),
			http.StatusNotFound: openapi.ResponseRef("NotFound"),
		},
	},
	OpenCrop: &openapi.Operation{
		Summary:     "Open the crop dialog",
		Description: "Targets a decodable raster image with a preview. Replaces any open dialog.",
		Tags:        []string{"Crop"},
		Parameters:  []*openapi.Parameter{sessionParam},
		RequestBody: openapi.RequestBodyJSON("OpenCropRequest", true),
		Responses:   cropResponses(http.StatusUnprocessableEntity),
	},
	CropState: &openapi.Operation{
		Summary:    "Read the crop dialog",
		Tags:       []string{"Crop"},
		Parameters: []*openapi.Parameter{sessionParam},
		Responses:  cropResponses(),
	},
	SetCropDisplay: &openapi.Operation{
		Summary:     "Report the displayed image size",
		Description: "Rescales both selections. A committed selection that no longer passes the checks is dropped.",
		Tags:        []string{"Crop"},
		Parameters:  []*openapi.Parameter{sessionParam},
		RequestBody: openapi.RequestBodyJSON("DisplayRequest", true),
		Responses:   cropResponses(http.StatusConflict),
	},
	SelectCrop: &openapi.Operation{
		Summary:     "Update the pending selection",
		Tags:        []string{"Crop"},
		Parameters:  []*openapi.Parameter{sessionParam},
		RequestBody: openapi.RequestBodyJSON("Rect", true),
		Responses:   cropResponses(http.StatusConflict, http.StatusUnprocessableEntity),
	},
	CommitCrop: &openapi.Operation{
		Summary:     "Commit a selection",
		Description: "The selection must meet the minimum size, stay in bounds, and match the aspect ratio.",
		Tags:        []string{"Crop"},
		Parameters:  []*openapi.Parameter{sessionParam},
		RequestBody: openapi.RequestBodyJSON("Rect", true),
		Responses:   cropResponses(http.StatusConflict, http.StatusUnprocessableEntity),
	},
	ApplyCrop: &openapi.Operation{
		Summary:    "Apply the committed selection",
		Tags:       []string{"Crop"},
		Parameters: []*openapi.Parameter{sessionParam},
		Responses: map[int]*openapi.Response{
			http.StatusOK:                  openapi.ResponseJSON("Cropped file", openapi.SchemaRef("File")),
			http.StatusNotFound:            openapi.ResponseRef("NotFound"),
			http.StatusConflict:            openapi.ResponseRef("Conflict"),
			http.StatusUnprocessableEntity: openapi.ResponseRef("UnprocessableEntity"),
		},
	},
	CancelCrop: &openapi.Operation{
		Summary:    "Close the crop dialog",
		Tags:       []string{"Crop"},
		Parameters: []*openapi.Parameter{sessionParam},
		Responses: map[int]*openapi.Response{
			http.StatusNoContent: openapi.NoContent("Dialog closed"),
			http.StatusNotFound:  openapi.ResponseRef("NotFound"),
		},
	},
}

var (
	sessionParam = openapi.PathParam("id", "Session ID")
	fileParam    = openapi.PathParam("file", "File ID")
)

var responseNames = map[int]string{
	http.StatusBadRequest:          "BadRequest",
	http.StatusNotFound:            "NotFound",
	http.StatusConflict:            "Conflict",
	http.StatusUnprocessableEntity: "UnprocessableEntity",
}

// cropResponses returns the crop state response plus the given error statuses.
func cropResponses(statuses ...int) map[int]*openapi.Response {
	out := map[int]*openapi.Response{
		http.StatusOK:       openapi.ResponseJSON("Crop dialog state", openapi.SchemaRef("CropState")),
		http.StatusNotFound: openapi.ResponseRef("NotFound"),
	}
	for _, status := range statuses {
		out[status] = openapi.ResponseRef(responseNames[status])
	}
	return out
}

// Schemas returns the component schemas the session routes reference.
func (spec) Schemas() map[string]*openapi.Schema {
	uuidSchema := &openapi.Schema{Type: "string", Format: "uuid"}
	number := &openapi.Schema{Type: "number"}
	size := &openapi.Schema{
		Type:       "object",
		Properties: map[string]*openapi.Schema{"width": number, "height": number},
	}

	return map[string]*openapi.Schema{
		"Session": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":        uuidSchema,
				"files":     openapi.ArrayOf("File"),
				"max_files": {Type: "integer"},
				"max_size":  {Type: "integer", Description: "Per-file size limit in bytes"},
				"accept":    {Type: "array", Items: &openapi.Schema{Type: "string"}},
				"crop":      openapi.SchemaRef("CropState"),
			},
		},
		"SessionSummary": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":          uuidSchema,
				"created":     {Type: "string", Format: "date-time"},
				"last_active": {Type: "string", Format: "date-time"},
				"files":       {Type: "integer"},
				"ready":       {Type: "integer"},
				"max_files":   {Type: "integer"},
			},
		},
		"SessionPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        openapi.ArrayOf("SessionSummary"),
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
		"File": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":              uuidSchema,
				"name":            {Type: "string"},
				"size":            {Type: "integer"},
				"type":            {Type: "string"},
				"progress":        {Type: "integer"},
				"status":          {Type: "string", Enum: []any{string(StatusPending), string(StatusComplete), string(StatusError)}},
				"error":           {Type: "string"},
				"error_kind":      {Type: "string", Enum: []any{string(ErrorSizeExceeded), string(ErrorUnsupportedType)}},
				"preview":         {Type: "string"},
				"cropped_preview": {Type: "string"},
				"page_count":      {Type: "integer"},
				"cropped":         {Type: "boolean"},
			},
		},
		"AddResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"files":   openapi.ArrayOf("File"),
				"dropped": {Type: "integer", Description: "Files refused because the session was full"},
			},
		},
		"ReadyFile": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"name":         {Type: "string"},
				"content_type": {Type: "string"},
				"size":         {Type: "integer"},
			},
		},
		"UpdateRequest": {
			Type:       "object",
			Required:   []string{"name"},
			Properties: map[string]*openapi.Schema{"name": {Type: "string"}},
		},
		"OpenCropRequest": {
			Type:       "object",
			Required:   []string{"file_id"},
			Properties: map[string]*openapi.Schema{"file_id": uuidSchema},
		},
		"DisplayRequest": {
			Type:       "object",
			Required:   []string{"width", "height"},
			Properties: map[string]*openapi.Schema{"width": number, "height": number},
		},
		"Rect": {
			Type:     "object",
			Required: []string{"x", "y", "width", "height"},
			Properties: map[string]*openapi.Schema{
				"x": number, "y": number, "width": number, "height": number,
			},
		},
		"CropState": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"open":         {Type: "boolean"},
				"file_id":      uuidSchema,
				"source":       {Type: "string", Description: "Preview handle of the image being cropped"},
				"natural":      size,
				"display":      size,
				"pending":      openapi.SchemaRef("Rect"),
				"committed":    openapi.SchemaRef("Rect"),
				"applying":     {Type: "boolean"},
				"aspect_ratio": {Type: "number", Description: "Width over height; absent allows any shape"},
				"min_width":    {Type: "integer"},
				"min_height":   {Type: "integer"},
			},
		},
	}
}
