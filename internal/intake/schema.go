// internal/intake/schema.go
package intake

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// announcementSchema validates the public announcement form payload before
// anything touches the router or the store.
var announcementSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"name": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"email": map[string]interface{}{
			"type":    "string",
			"format":  "email",
			"pattern": `^[^@\s]+@[^@\s]+\.[^@\s]+$`,
		},
		"ministry": map[string]interface{}{
			"type": "string",
		},
		"eventDate": map[string]interface{}{
			"type": "string",
		},
		"eventTime": map[string]interface{}{
			"type": "string",
		},
		"promotionStart": map[string]interface{}{
			"type": "string",
		},
		"platforms": map[string]interface{}{
			"type":     "array",
			"minItems": 1,
			"items": map[string]interface{}{
				"type": "string",
				"enum": []string{"Email Blast", "Bulletin", "Church Screens"},
			},
		},
		"announcementBody": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"addToCalendar": map[string]interface{}{
			"type": "boolean",
		},
		"fileLinks": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":   "string",
				"format": "uri",
			},
		},
	},
	"required":             []string{"name", "email", "ministry", "platforms", "announcementBody"},
	"additionalProperties": false,
}

// validatePayload runs the raw JSON document against the announcement schema
// and flattens any violations into one detail string.
func validatePayload(document map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(announcementSchema)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("%s", strings.Join(details, "; "))
}
