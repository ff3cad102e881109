package config

// documentSchema is the JSON Schema every topology document must satisfy
// before it is decoded into a Document.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["states", "components"],
  "additionalProperties": false,
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "states": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "parent": {"type": "string"},
          "history": {"type": "boolean"},
          "default_child": {"type": "string"},
          "on_entry": {"type": "string"},
          "on_exit": {"type": "string"},
          "transitions": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["trigger", "target"],
              "additionalProperties": false,
              "properties": {
                "trigger": {"type": "string", "minLength": 1},
                "target": {"type": "string", "minLength": 1},
                "guard": {"type": "string"},
                "action": {"type": "string"}
              }
            }
          }
        }
      }
    },
    "components": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "initial_state"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "initial_state": {"type": "string", "minLength": 1},
          "rules": {
            "type": "array",
            "items": {
              "type": "object",
              "additionalProperties": false,
              "properties": {
                "name": {"type": "string"},
                "trigger": {"type": "string"},
                "deny": {"type": "boolean"},
                "map_to": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`
