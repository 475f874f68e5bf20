package script

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/mvoevodskiy/botcms/internal/util"
	"github.com/mvoevodskiy/botcms/pkg/api"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

type (
	// Compiler owns the compiled step tree, the ordered command list,
	// and the template tables collected from loaded documents. Loading
	// merges into the existing tree: paths are structural, so the same
	// step recompiles to the same address
	Compiler struct {
		logger    *slog.Logger
		templates *templateSet

		mu       sync.RWMutex
		steps    map[api.Path]*api.Step
		siblings map[api.Path][]api.Path
		commands []api.Path
		known    util.Set[api.Path]
	}

	// meta is the pass-one record of one step's structural addressing.
	// Pass two reads it when substituting placeholders and assigning
	// the compiled step's identity fields
	meta struct {
		path     api.Path
		parent   api.Path
		children api.Path
		isParent bool
	}
)

// New creates an empty compiler
func New(logger *slog.Logger) *Compiler {
	return &Compiler{
		logger:    logger,
		templates: newTemplateSet(),
		steps:     map[api.Path]*api.Step{},
		siblings:  map[api.Path][]api.Path{},
		known:     util.SetOf[api.Path](),
	}
}

// LoadYAML compiles a YAML script document into the tree. Sibling
// order follows the document
func (c *Compiler) LoadYAML(data []byte) error {
	nodes, err := nodesFromYAML(data)
	if err != nil {
		return err
	}
	c.load(nodes)
	return nil
}

// Load compiles a programmatic document into the tree. Sibling order
// is sorted-key order
func (c *Compiler) Load(doc map[string]any) error {
	nodes, err := nodesFromMap(doc)
	if err != nil {
		return err
	}
	c.load(nodes)
	return nil
}

// RegisterTemplate registers a named template outside of any document
func (c *Compiler) RegisterTemplate(name string, body any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates.Register(name, body)
}

// Lookup returns the compiled step at path
func (c *Compiler) Lookup(path api.Path) (*api.Step, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	step, ok := c.steps[path]
	return step, ok
}

// Children returns the members of a children container in declared
// order. The container path itself has no compiled step
func (c *Compiler) Children(container api.Path) []*api.Step {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := c.siblings[container]
	steps := make([]*api.Step, 0, len(paths))
	for _, path := range paths {
		if step, ok := c.steps[path]; ok {
			steps = append(steps, step)
		}
	}
	return steps
}

// Commands returns the registered command paths in registration order
func (c *Compiler) Commands() []api.Path {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]api.Path, len(c.commands))
	copy(out, c.commands)
	return out
}

// Len returns the number of compiled steps
func (c *Compiler) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.steps)
}

func (c *Compiler) load(nodes []*rawNode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.collectBindings(nodes)

	table := map[api.Path]*meta{}
	collectMeta("", nodes, table)
	c.compileNodes("", nodes, table)
}

// collectBindings registers every template and variable table in the
// document before any step compiles, so references resolve regardless
// of where they appear
func (c *Compiler) collectBindings(nodes []*rawNode) {
	for _, n := range nodes {
		switch n.kind {
		case nodeTemplates:
			for name, body := range n.fields {
				c.templates.Register(name, body)
			}
		case nodeVars:
			c.templates.RegisterVars(n.fields)
		case nodeStep:
			if tpls, ok := n.fields[templatesKey].(map[string]any); ok {
				for name, body := range tpls {
					c.templates.Register(name, body)
				}
				delete(n.fields, templatesKey)
			}
			c.collectBindings(n.kids)
		case nodeContainer:
			c.collectBindings(n.kids)
		}
	}
}

func collectMeta(parent api.Path, nodes []*rawNode, table map[api.Path]*meta) {
	for _, n := range nodes {
		switch n.kind {
		case nodeContainer:
			collectMeta(joinPath(parent, n.name), n.kids, table)
		case nodeStep:
			path := joinPath(parent, n.name)
			m := &meta{
				path:     path,
				parent:   parent,
				children: path + "." + childKey,
				isParent: len(n.kids) > 0,
			}
			table[path] = m
			collectMeta(m.children, n.kids, table)
		}
	}
}

func (c *Compiler) compileNodes(
	parent api.Path, nodes []*rawNode, table map[api.Path]*meta,
) {
	for _, n := range nodes {
		switch n.kind {
		case nodeContainer:
			c.compileNodes(joinPath(parent, n.name), n.kids, table)
		case nodeStep:
			m := table[joinPath(parent, n.name)]
			if err := c.compileStep(parent, n, m); err != nil {
				c.logger.Warn("skipping malformed step",
					log.Path(m.path), log.Error(err))
				continue
			}
			c.compileNodes(m.children, n.kids, table)
		}
	}
}

func (c *Compiler) compileStep(container api.Path, n *rawNode, m *meta) error {
	fields, err := c.stepFields(n)
	if err != nil {
		return err
	}

	expandAliases(fields, rootAliases)

	trigger := parseTrigger(fields["trigger"])
	delete(fields, "trigger")

	tokens := placeholders(m.path, m.parent)
	for _, key := range []string{"validate", "goto"} {
		value, ok := fields[key]
		if !ok || value == nil {
			continue
		}
		fields[key] = substitutePaths(value, tokens)
	}

	command := truthy(fields["command"])
	delete(fields, "command")

	normalizeStep(fields)

	step := &api.Step{}
	if err := decodeStep(fields, step); err != nil {
		return err
	}
	step.Path = m.path
	step.Parent = m.parent
	step.Children = m.children
	step.IsParent = m.isParent
	step.Command = command
	step.Trigger = trigger

	if err := step.CheckValid(); err != nil {
		return err
	}

	c.steps[m.path] = step
	c.appendSibling(container, m.path)
	if command {
		c.registerCommand(m.path)
	}
	return nil
}

// stepFields resolves a whole-step template reference and expands the
// references among the step's direct string fields, yielding a private
// copy safe to mutate
func (c *Compiler) stepFields(n *rawNode) (map[string]any, error) {
	if n.ref != "" {
		body, err := c.templates.Expand(n.ref)
		if err != nil {
			return nil, err
		}
		fields, ok := body.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrStepNotMapping, n.name)
		}
		return fields, nil
	}

	fields := make(map[string]any, len(n.fields))
	for key, value := range n.fields {
		fields[key] = copyValue(value)
	}
	for key, value := range fields {
		expanded, err := c.templates.Expand(value)
		if err != nil {
			return nil, err
		}
		fields[key] = expanded
	}
	return fields, nil
}

func (c *Compiler) appendSibling(container, path api.Path) {
	for _, existing := range c.siblings[container] {
		if existing == path {
			return
		}
	}
	c.siblings[container] = append(c.siblings[container], path)
}

func (c *Compiler) registerCommand(path api.Path) {
	if c.known.Contains(path) {
		return
	}
	c.known.Add(path)
	c.commands = append(c.commands, path)
}

func decodeStep(fields map[string]any, step *api.Step) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           step,
	})
	if err != nil {
		return err
	}
	return dec.Decode(fields)
}

// DecodeStep compiles a detached step-shaped mapping outside of any
// script tree, as scheduled job specs are declared. Aliases and
// shorthand forms normalize the same way tree steps do; path
// placeholders are not available
func DecodeStep(fields map[string]any) (*api.Step, error) {
	private := make(map[string]any, len(fields))
	for key, value := range fields {
		private[key] = copyValue(value)
	}
	expandAliases(private, rootAliases)

	trigger := parseTrigger(private["trigger"])
	delete(private, "trigger")
	command := truthy(private["command"])
	delete(private, "command")

	normalizeStep(private)

	step := &api.Step{}
	if err := decodeStep(private, step); err != nil {
		return nil, err
	}
	step.Trigger = trigger
	step.Command = command
	return step, nil
}

func joinPath(parent api.Path, name string) api.Path {
	if parent == "" {
		return api.Path(name)
	}
	return parent + api.Path("."+name)
}
