package yamlutil

import (
	"bytes"

	"go.yaml.in/yaml/v3"
)

// MarshalWithIndent encodes v as YAML using indent spaces per level.
func MarshalWithIndent(v any, indent int) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(indent)
	if err := encoder.Encode(v); err != nil {
		_ = encoder.Close()
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeStrict decodes the first YAML document in data into out and rejects
// keys out does not declare. Empty input returns io.EOF.
func DecodeStrict(data []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(out)
}
