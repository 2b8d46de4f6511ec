package policy

// policySchema is the JSON Schema applied to a decoded tolerance policy.
const policySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["defaultMode", "categories"],
  "properties": {
    "defaultMode": {"type": "string", "enum": ["exact_text", "numeric_tolerance"]},
    "matchStrategy": {"type": "string", "enum": ["first_match"]},
    "numericParsing": {
      "type": "object",
      "properties": {
        "trimWhitespace": {"type": "boolean"},
        "collapseWhitespace": {"type": "boolean"},
        "skipEmptyLines": {"type": "boolean"},
        "commentPrefixes": {"type": "array", "items": {"type": "string", "minLength": 1}},
        "fortranExponentMarkers": {"type": "array", "items": {"type": "string", "minLength": 1}},
        "failOnNaNOrInfMismatch": {"type": "boolean"}
      }
    },
    "categories": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "mode", "fileGlobs"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "mode": {"type": "string", "enum": ["exact_text", "numeric_tolerance"]},
          "fileGlobs": {
            "type": "array",
            "minItems": 1,
            "items": {"type": "string", "minLength": 1}
          },
          "tolerance": {
            "type": "object",
            "properties": {
              "absTol": {"type": "number", "minimum": 0},
              "relTol": {"type": "number", "minimum": 0},
              "relativeFloor": {"type": "number", "minimum": 0}
            }
          }
        }
      }
    }
  }
}`
