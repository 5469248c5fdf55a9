package chat

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"citeweb/internal/apperr"
)

const requestSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": ["string", "null"]},
    "model": {"type": ["string", "null"]},
    "url": {
      "type": ["array", "null"],
      "items": {"type": "string"}
    },
    "structuredScrape": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["url"],
        "properties": {
          "url": {"type": "string"},
          "error": {"type": ["string", "null"]},
          "content": {
            "type": ["object", "null"],
            "properties": {
              "title": {"type": ["string", "null"]},
              "headings": {
                "type": ["array", "null"],
                "items": {
                  "type": "object",
                  "properties": {
                    "heading": {"type": "string"},
                    "tag": {"type": "string"}
                  }
                }
              },
              "paragraphs": {
                "type": ["array", "null"],
                "items": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`

var requestSchemaLoader = gojsonschema.NewStringLoader(requestSchema)

// ValidateRequest checks a raw /chat body against the request schema.
func ValidateRequest(body []byte) error {
	result, err := gojsonschema.Validate(requestSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: malformed request body: %v", apperr.ErrValidation, err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", apperr.ErrValidation, strings.Join(errs, "; "))
	}
	return nil
}
