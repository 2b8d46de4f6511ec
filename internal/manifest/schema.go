package manifest

// manifestSchema is the JSON Schema applied to a decoded manifest document.
const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["fixtures"],
  "properties": {
    "defaultComparison": {"$ref": "#/$defs/comparison"},
    "fixtures": {
      "type": "array",
      "items": {"$ref": "#/$defs/fixture"}
    }
  },
  "$defs": {
    "comparison": {
      "type": "object",
      "properties": {
        "passFailThreshold": {"$ref": "#/$defs/threshold"}
      }
    },
    "threshold": {
      "type": "object",
      "properties": {
        "minimumArtifactPassRate": {"type": "number", "minimum": 0, "maximum": 1},
        "maxArtifactFailures": {"type": "integer", "minimum": 0}
      }
    },
    "fixture": {
      "type": "object",
      "required": ["id", "inputDirectory", "entryFiles", "baselineStatus"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "inputDirectory": {"type": "string", "minLength": 1},
        "entryFiles": {
          "type": "array",
          "minItems": 1,
          "items": {"type": "string", "minLength": 1}
        },
        "baselineSources": {
          "type": "array",
          "items": {"$ref": "#/$defs/baselineSource"}
        },
        "baselineStatus": {
          "type": "string",
          "enum": [
            "requires_capture",
            "reference_archive_available",
            "reference_files_available"
          ]
        },
        "modulesCovered": {
          "type": "array",
          "items": {"type": "string"}
        },
        "comparison": {"$ref": "#/$defs/comparison"}
      }
    },
    "baselineSource": {
      "type": "object",
      "required": ["kind", "path"],
      "properties": {
        "kind": {
          "type": "string",
          "enum": ["reference_archive", "reference_dir", "loose_files"]
        },
        "path": {"type": "string", "minLength": 1}
      }
    }
  }
}`
