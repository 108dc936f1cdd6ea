package results

import (
	"encoding/json"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// plotJSON keeps numbers as json.Number so series values reach the caller
// exactly as the server encoded them.
var plotJSON = jsoniter.Config{
	EscapeHTML:             true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// Series holds the coordinates of one trace of a plot.
type Series struct {
	X []any `json:"x"`
	Y []any `json:"y"`
}

// decodePlot turns plotStr into a tree of map[string]any, []any, string,
// json.Number, bool and nil. Strict JSON is decoded directly. Anything else
// is read with a YAML flow parser, which accepts single-quoted strings, and
// the node tree is converted by hand so numbers keep their source text.
func decodePlot(plotStr string) (any, error) {
	raw := []byte(plotStr)
	if plotJSON.Valid(raw) {
		var doc any
		if err := plotJSON.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		return doc, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	return convertNode(&root)
}

func convertNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return convertNode(node.Content[0])
	case yaml.AliasNode:
		return convertNode(node.Alias)
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := convertNode(child)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case yaml.MappingNode:
		// Repeated keys resolve to the last value, as in a JSON object.
		fields := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, err := convertNode(node.Content[i])
			if err != nil {
				return nil, err
			}
			name, ok := key.(string)
			if !ok {
				return nil, errors.Errorf("line %d: mapping key %q is not a string", node.Content[i].Line, node.Content[i].Value)
			}
			value, err := convertNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			fields[name] = value
		}
		return fields, nil
	case yaml.ScalarNode:
		return convertScalar(node)
	}
	return nil, errors.Errorf("line %d: unsupported yaml node kind %d", node.Line, node.Kind)
}

// nonFiniteNumbers maps the spellings of NaN and infinity a plot payload may
// carry to the text json.Number.Float64 accepts.
var nonFiniteNumbers = map[string]string{
	"NaN": "NaN", ".nan": "NaN", ".NaN": "NaN", ".NAN": "NaN",
	"Infinity": "Infinity", ".inf": "Infinity", ".Inf": "Infinity", ".INF": "Infinity",
	"+Infinity": "Infinity", "+.inf": "Infinity", "+.Inf": "Infinity", "+.INF": "Infinity",
	"-Infinity": "-Infinity", "-.inf": "-Infinity", "-.Inf": "-Infinity", "-.INF": "-Infinity",
}

func convertScalar(node *yaml.Node) (any, error) {
	switch node.Style {
	case yaml.SingleQuotedStyle:
		return unescapeSingleQuoted(node)
	case yaml.DoubleQuotedStyle, yaml.LiteralStyle, yaml.FoldedStyle:
		return node.Value, nil
	}

	if number, ok := nonFiniteNumbers[node.Value]; ok {
		return json.Number(number), nil
	}

	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int", "!!float":
		return json.Number(node.Value), nil
	}
	return node.Value, nil
}

// unescapeSingleQuoted reads the backslash escapes of a single-quoted string
// the way a JSON decoder reads them in a double-quoted one, so 'a\nb' holds
// a newline.
func unescapeSingleQuoted(node *yaml.Node) (string, error) {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(node.Value); i++ {
		c := node.Value[i]
		switch {
		case c == '\\' && i+1 < len(node.Value):
			b.WriteByte(c)
			i++
			b.WriteByte(node.Value[i])
		case c == '"':
			b.WriteString(`\"`)
		case c < 0x20:
			fmt.Fprintf(&b, `\u%04x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')

	var s string
	if err := plotJSON.UnmarshalFromString(b.String(), &s); err != nil {
		return "", errors.Wrapf(err, "line %d: invalid escape in %q", node.Line, node.Value)
	}
	return s, nil
}

func parsePlotSeries(title, plotStr string, into map[string]Series) error {
	decoded, err := decodePlot(plotStr)
	if err != nil {
		return &PlotParseError{Title: title, Reason: "payload does not decode", Err: err}
	}

	doc, ok := decoded.(map[string]any)
	if !ok {
		return &PlotParseError{Title: title, Reason: "payload is not a plot document"}
	}

	rawData, ok := doc["data"]
	if !ok {
		return &PlotParseError{Title: title, Reason: "plot document has no data array"}
	}

	traces, ok := rawData.([]any)
	if !ok {
		return &PlotParseError{Title: title, Reason: "data is not an array of series"}
	}

	for i, rawTrace := range traces {
		trace, ok := rawTrace.(map[string]any)
		if !ok {
			return &PlotParseError{Title: title, Reason: fmt.Sprintf("series %d is not an object", i)}
		}
		for _, key := range []string{"name", "x", "y"} {
			if _, ok := trace[key]; !ok {
				return &PlotParseError{Title: title, Reason: fmt.Sprintf("series %d has no %q", i, key)}
			}
		}

		name, ok := trace["name"].(string)
		if !ok {
			return &PlotParseError{Title: title, Reason: fmt.Sprintf("series %d name is not a string", i)}
		}

		var series Series
		if series.X, ok = coordinates(trace["x"]); !ok {
			return &PlotParseError{Title: title, Reason: fmt.Sprintf("series %q x is not an array", name)}
		}
		if series.Y, ok = coordinates(trace["y"]); !ok {
			return &PlotParseError{Title: title, Reason: fmt.Sprintf("series %q y is not an array", name)}
		}

		into[name] = series
	}

	return nil
}

func coordinates(value any) ([]any, bool) {
	if value == nil {
		return nil, true
	}
	values, ok := value.([]any)
	return values, ok
}
