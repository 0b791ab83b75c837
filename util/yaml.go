package util

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// GetYamlLocation fetches a descriptive location of YAML node, including its anchor if any
func GetYamlLocation(node *yaml.Node) string {
	if len(node.Anchor) > 0 {
		return fmt.Sprintf("yaml line %d:%d &%s", node.Line, node.Column, node.Anchor)
	}
	return fmt.Sprintf("yaml line %d:%d", node.Line, node.Column)
}

// NewYamlError creates a new error with location information of YAML node
func NewYamlError(node *yaml.Node, message string) error {
	return fmt.Errorf("yaml line %d:%d: %s", node.Line, node.Column, message)
}

// UnmarshalYamlFile loads and unmarshals YAML from file to pointer to struct, rejecting unknown fields
func UnmarshalYamlFile(path string, output interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := unmarshalYamlReader(file, output); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func unmarshalYamlReader(reader io.Reader, output interface{}) error {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true) // only works outside of custom unmarshalers
	return decoder.Decode(output)
}
