// Package jsonsync sends an experiment described by a JSON file to the
// tracking service through the external "neptune run" tool.
//
// The JSON document may contain these sections:
//
//	{
//	  "name": "baseline",
//	  "parameters": {"lr": 0.1, "batch_size": 32},
//	  "tags": ["base", "solution-1"],
//	  "channels": {"log_loss": {"x": [0, 1, 2], "y": [0, 1, 4]}},
//	  "properties": {"data_version": "version_1"}
//	}
//
// name and parameters are required; the other sections default to empty.
package jsonsync

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Param is one experiment parameter. Value is the JSON scalar as text:
// strings unquoted, numbers as written in the document.
type Param struct {
	Key   string
	Value string
	Type  gjson.Type
}

// Channel is a named series of (x, y) points
type Channel struct {
	Name string
	X    []float64
	Y    []float64
}

// Points returns the number of (x, y) pairs. Extra values in the longer of
// X and Y are ignored.
func (c Channel) Points() int {
	return min(len(c.X), len(c.Y))
}

// Property is one string property
type Property struct {
	Key   string
	Value string
}

// Record is a parsed experiment document. Parameters, channels and
// properties keep document order.
type Record struct {
	Name       string
	Parameters []Param
	Tags       []string
	Channels   []Channel
	Properties []Property
}

const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "parameters"],
  "properties": {
    "name": {"type": "string"},
    "parameters": {
      "type": "object",
      "additionalProperties": {"type": ["string", "number", "boolean", "null"]}
    },
    "tags": {"type": "array", "items": {"type": "string"}},
    "channels": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["x", "y"],
        "properties": {
          "x": {"type": "array", "items": {"type": "number"}},
          "y": {"type": "array", "items": {"type": "number"}}
        }
      }
    },
    "properties": {
      "type": "object",
      "additionalProperties": {"type": ["string", "number", "boolean"]}
    }
  }
}`

var compiledSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", strings.NewReader(recordSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("record.json")
}()

// DecodeRecord validates and parses an experiment document. path is only
// used in error messages. Every failure is a MalformedInputError.
func DecodeRecord(path string, data []byte) (*Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.NewMalformedInputError(path, "not valid JSON")
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewMalformedInputError(path, err.Error())
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, errors.NewMalformedInputError(path, schemaReason(err))
	}

	parsed := gjson.ParseBytes(data)
	rec := &Record{Name: parsed.Get("name").String()}

	parsed.Get("parameters").ForEach(func(key, value gjson.Result) bool {
		rec.Parameters = append(rec.Parameters, Param{Key: key.String(), Value: scalarText(value), Type: value.Type})
		return true
	})
	for _, tag := range parsed.Get("tags").Array() {
		rec.Tags = append(rec.Tags, tag.String())
	}
	parsed.Get("channels").ForEach(func(key, value gjson.Result) bool {
		rec.Channels = append(rec.Channels, Channel{
			Name: key.String(),
			X:    floats(value.Get("x")),
			Y:    floats(value.Get("y")),
		})
		return true
	})
	parsed.Get("properties").ForEach(func(key, value gjson.Result) bool {
		rec.Properties = append(rec.Properties, Property{Key: key.String(), Value: scalarText(value)})
		return true
	})

	return rec, nil
}

func scalarText(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return "null"
	default:
		return v.Raw
	}
}

func floats(v gjson.Result) []float64 {
	items := v.Array()
	out := make([]float64, len(items))
	for i, item := range items {
		out[i] = item.Float()
	}
	return out
}

// schemaReason flattens a validation error into one line
func schemaReason(err error) string {
	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return fmt.Sprintf("%s: %s", loc, leaf.Message)
	}
	return err.Error()
}
