// Package schema loads a full bot definition from a single YAML
// document: scripts, templates, keyboards, lexicons, and cron jobs.
// Sections load independently; a malformed section is logged and
// skipped without failing the rest of the document.
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mvoevodskiy/botcms/internal/engine"
	"github.com/mvoevodskiy/botcms/internal/script"
	"github.com/mvoevodskiy/botcms/pkg/api"
	"github.com/mvoevodskiy/botcms/pkg/log"
)

type (
	// JobScheduler registers the recurring jobs a schema's cron section
	// declares
	JobScheduler interface {
		ScheduleEvery(
			ctx context.Context, path []string,
			every time.Duration, fn func(context.Context) error,
		)
	}

	// Loader binds schema documents to an engine and, optionally, a job
	// scheduler
	Loader struct {
		logger  *slog.Logger
		engine  *engine.Engine
		jobs    JobScheduler
		lexicon engine.MapLexicon
	}
)

var (
	ErrSchemaNotMapping = errors.New("schema document is not a mapping")
	ErrJobInterval      = errors.New("job has no usable interval trigger")
	ErrJobAction        = errors.New("job declares no action")
)

// Section names recognized in a schema document
const (
	sectionScripts   = "scripts"
	sectionTemplates = "templates"
	sectionKeyboards = "keyboards"
	sectionLexicons  = "lexicons"
	sectionCron      = "cron"
)

// NewLoader creates a schema loader. A nil scheduler disables the cron
// section
func NewLoader(
	logger *slog.Logger, eng *engine.Engine, jobs JobScheduler,
) *Loader {
	return &Loader{
		logger:  logger,
		engine:  eng,
		jobs:    jobs,
		lexicon: engine.MapLexicon{},
	}
}

// LoadFile reads and loads a schema document from disk
func (l *Loader) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	return l.Load(ctx, data)
}

// Load applies a schema document. Script declaration order is
// preserved through to the compiled tree
func (l *Loader) Load(ctx context.Context, data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return ErrSchemaNotMapping
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		value := root.Content[i+1]
		if err := l.loadSection(ctx, name, value); err != nil {
			l.logger.Warn("schema section failed",
				slog.String("section", name), log.Error(err))
		}
	}
	return nil
}

func (l *Loader) loadSection(
	ctx context.Context, name string, value *yaml.Node,
) error {
	switch name {
	case sectionScripts:
		return l.loadScripts(value)
	case sectionTemplates:
		return l.loadTemplates(value)
	case sectionKeyboards:
		return l.loadKeyboards(value)
	case sectionLexicons:
		return l.loadLexicons(value)
	case sectionCron:
		return l.loadCron(ctx, value)
	default:
		l.logger.Warn("unknown schema section",
			slog.String("section", name))
		return nil
	}
}

func (l *Loader) loadScripts(value *yaml.Node) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	return l.engine.Scripts().LoadYAML(data)
}

func (l *Loader) loadTemplates(value *yaml.Node) error {
	var templates map[string]any
	if err := value.Decode(&templates); err != nil {
		return err
	}
	for name, body := range templates {
		l.engine.Scripts().RegisterTemplate(name, body)
	}
	return nil
}

func (l *Loader) loadKeyboards(value *yaml.Node) error {
	var keyboards map[string]*api.KeyboardRef
	if err := value.Decode(&keyboards); err != nil {
		return err
	}
	for name, ref := range keyboards {
		if ref == nil {
			continue
		}
		l.engine.RegisterKeyboard(name, ref)
	}
	return nil
}

func (l *Loader) loadLexicons(value *yaml.Node) error {
	var lexicons map[string]map[string]string
	if err := value.Decode(&lexicons); err != nil {
		return err
	}
	for language, table := range lexicons {
		merged := l.lexicon[language]
		if merged == nil {
			merged = map[string]string{}
			l.lexicon[language] = merged
		}
		for key, text := range table {
			merged[key] = text
		}
	}
	l.engine.SetLexicon(l.lexicon)
	return nil
}

// loadCron registers each job under the path ["cron", name], so a
// reloaded document replaces its jobs instead of stacking them
func (l *Loader) loadCron(ctx context.Context, value *yaml.Node) error {
	if l.jobs == nil {
		l.logger.Warn("cron section ignored: no scheduler attached")
		return nil
	}
	var specs map[string]map[string]any
	if err := value.Decode(&specs); err != nil {
		return err
	}
	for name, fields := range specs {
		if err := l.loadJob(ctx, name, fields); err != nil {
			l.logger.Warn("skipping malformed job",
				slog.String("job", name), log.Error(err))
		}
	}
	return nil
}

func (l *Loader) loadJob(
	ctx context.Context, name string, fields map[string]any,
) error {
	every, err := jobInterval(fields["trigger"])
	if err != nil {
		return err
	}
	step, err := script.DecodeStep(fields)
	if err != nil {
		return err
	}
	if step.Action == nil {
		return fmt.Errorf("%w: %s", ErrJobAction, name)
	}

	l.jobs.ScheduleEvery(ctx, []string{sectionCron, name}, every,
		func(ctx context.Context) error {
			l.engine.RunStepAction(ctx, step)
			return nil
		})
	return nil
}

// jobInterval reads the job's interval from its trigger, declared as a
// duration string or a {value: duration} mapping
func jobInterval(raw any) (time.Duration, error) {
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case map[string]any:
		text, _ = v["value"].(string)
	}
	if text == "" {
		return 0, ErrJobInterval
	}
	every, err := time.ParseDuration(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrJobInterval, err)
	}
	if every <= 0 {
		return 0, ErrJobInterval
	}
	return every, nil
}
