package script

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// nodesFromYAML parses a YAML script document into raw nodes, walking
// the node tree directly so that the declared order of sibling steps
// survives into compilation
func nodesFromYAML(data []byte) ([]*rawNode, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocNotMapping, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	return yamlMapping(doc.Content[0])
}

func yamlMapping(m *yaml.Node) ([]*rawNode, error) {
	m = resolveAlias(m)
	if m.Kind != yaml.MappingNode {
		return nil, ErrDocNotMapping
	}
	var nodes []*rawNode
	for i := 0; i+1 < len(m.Content); i += 2 {
		name := m.Content[i].Value
		val := resolveAlias(m.Content[i+1])
		n, err := yamlEntry(name, val)
		if err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func yamlEntry(name string, val *yaml.Node) (*rawNode, error) {
	if isYAMLNull(val) {
		return nil, nil
	}
	switch name {
	case templatesKey, globalVarsKey:
		var m map[string]any
		if err := val.Decode(&m); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrStepNotMapping, name)
		}
		kind := nodeTemplates
		if name == globalVarsKey {
			kind = nodeVars
		}
		return &rawNode{kind: kind, name: name, fields: m}, nil
	case childKey:
		kids, err := yamlMapping(val)
		if err != nil {
			return nil, err
		}
		return &rawNode{kind: nodeContainer, name: name, kids: kids}, nil
	}
	return yamlStep(name, val)
}

func yamlStep(name string, val *yaml.Node) (*rawNode, error) {
	if val.Kind == yaml.ScalarNode {
		var ref string
		if err := val.Decode(&ref); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrStepNotMapping, name)
		}
		return &rawNode{kind: nodeStep, name: name, ref: ref}, nil
	}
	if val.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s", ErrStepNotMapping, name)
	}

	n := &rawNode{
		kind:   nodeStep,
		name:   name,
		fields: map[string]any{},
	}
	for i := 0; i+1 < len(val.Content); i += 2 {
		key := val.Content[i].Value
		value := resolveAlias(val.Content[i+1])
		if key == childKey {
			if isYAMLNull(value) {
				continue
			}
			kids, err := yamlMapping(value)
			if err != nil {
				return nil, err
			}
			n.kids = kids
			continue
		}
		var plain any
		if err := value.Decode(&plain); err != nil {
			return nil, fmt.Errorf(
				"%w: %s.%s", ErrStepNotMapping, name, key,
			)
		}
		n.fields[key] = plain
	}
	return n, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias
	}
	return n
}

func isYAMLNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
