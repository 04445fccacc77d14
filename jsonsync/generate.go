package jsonsync

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// driverTemplate opens a tracking context, re-reads the experiment JSON and
// replays channels, properties and tags.
var driverTemplate = template.Must(template.New("driver").Funcs(template.FuncMap{
	"pyString": pyString,
}).Parse(`import json

import neptune

ctx = neptune.Context()

with open({{ pyString .JSONPath }}, 'r') as fp:
    data = json.load(fp)

for name, channel in data.get('channels', {}).items():
    for x, y in zip(channel['x'], channel['y']):
        ctx.channel_send(name, x, y)

for name, value in data.get('properties', {}).items():
    ctx.properties[name] = value

ctx.tags.extend(data.get('tags', []))
`))

// pyString quotes s as a Python string literal. JSON string escapes are a
// subset of Python's. s must be valid UTF-8; json.Marshal replaces invalid
// bytes.
func pyString(s string) (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}

// WriteScript writes the driver script that replays the JSON at jsonPath.
// jsonPath must be valid UTF-8.
func WriteScript(w io.Writer, jsonPath string) error {
	if !utf8.ValidString(jsonPath) {
		return errors.NewValueError("WriteScript", fmt.Sprintf("path %q is not valid UTF-8", jsonPath))
	}
	return errors.Wrap(driverTemplate.Execute(w, struct{ JSONPath string }{jsonPath}), "render driver script")
}

// WriteConfig writes the run configuration: the experiment name and one
// "key: value" line per parameter, in document order.
func WriteConfig(w io.Writer, rec *Record) error {
	params := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range rec.Parameters {
		params.Content = append(params.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
			paramNode(p),
		)
	}
	doc := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "name"},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: rec.Name},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "parameters"},
		params,
	}}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrap(enc.Close(), "encode config")
}

func paramNode(p Param) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: p.Value}
	switch p.Type {
	case gjson.Number:
		n.Tag = "!!int"
		if strings.ContainsAny(p.Value, ".eE") {
			n.Tag = "!!float"
		}
	case gjson.True, gjson.False:
		n.Tag = "!!bool"
	case gjson.Null:
		n.Tag = "!!null"
	default:
		n.Tag = "!!str"
	}
	return n
}
