package script

import (
	"errors"
	"fmt"
	"sort"
)

type (
	nodeKind int

	// rawNode is one entry of a script document before compilation.
	// Containers are the reserved "c" mappings holding nested steps;
	// their entry order is what first-match resolution sees later
	rawNode struct {
		kind   nodeKind
		name   string
		ref    string
		fields map[string]any
		kids   []*rawNode
	}
)

const (
	nodeStep nodeKind = iota
	nodeContainer
	nodeTemplates
	nodeVars
)

const (
	childKey      = "c"
	templatesKey  = "$TEMPLATES"
	globalVarsKey = "$GLOBAL_VARS"
)

var (
	ErrDocNotMapping  = errors.New("script document is not a mapping")
	ErrStepNotMapping = errors.New("step is not a mapping")
)

// nodesFromMap converts a programmatic document into raw nodes. Maps
// carry no declared order, so entries are walked in sorted-key order
// for determinism
func nodesFromMap(doc map[string]any) ([]*rawNode, error) {
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)

	nodes := make([]*rawNode, 0, len(names))
	for _, name := range names {
		n, err := entryFromValue(name, doc[name])
		if err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

func entryFromValue(name string, value any) (*rawNode, error) {
	if value == nil {
		return nil, nil
	}
	switch name {
	case templatesKey:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrStepNotMapping, name)
		}
		return &rawNode{kind: nodeTemplates, name: name, fields: m}, nil
	case globalVarsKey:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrStepNotMapping, name)
		}
		return &rawNode{kind: nodeVars, name: name, fields: m}, nil
	case childKey:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrStepNotMapping, name)
		}
		kids, err := nodesFromMap(m)
		if err != nil {
			return nil, err
		}
		return &rawNode{kind: nodeContainer, name: name, kids: kids}, nil
	}
	switch v := value.(type) {
	case string:
		return &rawNode{kind: nodeStep, name: name, ref: v}, nil
	case map[string]any:
		return stepFromMap(name, v)
	default:
		return nil, fmt.Errorf("%w: %s", ErrStepNotMapping, name)
	}
}

func stepFromMap(name string, m map[string]any) (*rawNode, error) {
	n := &rawNode{
		kind:   nodeStep,
		name:   name,
		fields: map[string]any{},
	}
	for key, value := range m {
		if key != childKey {
			n.fields[key] = value
			continue
		}
		if value == nil {
			continue
		}
		cm, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf(
				"%w: %s.%s", ErrStepNotMapping, name, childKey,
			)
		}
		kids, err := nodesFromMap(cm)
		if err != nil {
			return nil, err
		}
		n.kids = kids
	}
	return n, nil
}
