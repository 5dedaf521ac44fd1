package discovery

// manifestSchema validates a suite manifest before any field is read.
// Keeping validation up front means the extraction code can assume
// shapes and only worry about semantics.
const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "tests"],
  "properties": {
    "version": {"type": "integer", "enum": [1]},
    "shell": {"type": "string"},
    "fixtures": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "scope": {"type": "string", "enum": ["function", "module", "package", "session", "dynamic"]},
          "declared_in": {"type": "string"},
          "depends_on": {"type": "array", "items": {"type": "string"}},
          "params": {"type": "array"},
          "async": {"type": "boolean"},
          "autouse": {"type": "boolean"},
          "setup": {"type": "string"},
          "teardown": {"type": "string"}
        },
        "additionalProperties": false
      }
    },
    "tests": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["module", "function", "command"],
        "properties": {
          "module": {"type": "string", "minLength": 1},
          "function": {"type": "string", "minLength": 1},
          "command": {"type": "string", "minLength": 1},
          "tags": {"type": "array", "items": {"type": "string"}},
          "fixtures": {"type": "array", "items": {"type": "string"}},
          "expect_fail": {"type": "boolean"},
          "skip": {"type": "string"},
          "params": {"type": "array", "items": {"type": "object"}}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`
