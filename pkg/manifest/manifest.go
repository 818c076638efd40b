package manifest

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
)

// Dist is the distribution block of a published package version.
type Dist struct {
	Tarball   string `json:"tarball" mapstructure:"tarball"`
	Integrity string `json:"integrity" mapstructure:"integrity"`
}

// Manifest is a remote package descriptor for one published version.
// Registry payloads are duck-typed; only the fields below are relied
// upon internally, everything else is kept opaque in Extra.
type Manifest struct {
	Name     string            `json:"name" mapstructure:"name"`
	Version  string            `json:"version" mapstructure:"version"`
	Requires map[string]string `json:"dependencies" mapstructure:"dependencies"`
	Dist     Dist              `json:"dist" mapstructure:"dist"`

	Deprecated string         `json:"deprecated,omitempty" mapstructure:"deprecated"`
	Extra      map[string]any `json:"-" mapstructure:",remain"`
}

var manifestSchema = MustCompileSchema(`{
	"type": "object",
	"required": ["name", "version"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"version": {"type": "string", "minLength": 1},
		"dependencies": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"dist": {
			"type": "object",
			"properties": {
				"tarball": {"type": "string"},
				"integrity": {"type": "string"}
			}
		}
	}
}`)

func MustCompileSchema(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchemaLoader().Compile(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Errorf("compile schema: %w", err))
	}
	return s
}

// Decode validates a raw version blob against the manifest schema and
// decodes it into a typed Manifest. Deprecated fields and other
// string-or-object registry quirks survive decoding; unknown fields
// land in Extra.
func Decode(raw map[string]any) (*Manifest, error) {
	res, err := manifestSchema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema validate: %w", err)
	}
	if !res.Valid() {
		return nil, fmt.Errorf("invalid manifest: %s", formatSchemaErrors(res.Errors()))
	}

	var m Manifest
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &m,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Requires == nil {
		m.Requires = map[string]string{}
	}
	return &m, nil
}

func formatSchemaErrors(errs []gojsonschema.ResultError) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%s: %s", e.Context().String("."), e.Description())
	}
	return out
}
