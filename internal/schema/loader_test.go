package schema_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvoevodskiy/botcms/internal/assert/helpers"
	"github.com/mvoevodskiy/botcms/internal/schema"
	"github.com/mvoevodskiy/botcms/internal/scheduler"
	"github.com/mvoevodskiy/botcms/pkg/api"
)

var _ schema.JobScheduler = (*scheduler.Scheduler)(nil)

type (
	fakeScheduler struct {
		jobs []scheduledJob
	}

	scheduledJob struct {
		path  []string
		every time.Duration
		fn    func(context.Context) error
	}
)

func (s *fakeScheduler) ScheduleEvery(
	_ context.Context, path []string,
	every time.Duration, fn func(context.Context) error,
) {
	s.jobs = append(s.jobs, scheduledJob{path: path, every: every, fn: fn})
}

const schemaDoc = `
scripts:
  c:
    hello:
      trigger: hi
      message: greeting
      kb: main
templates:
  farewell:
    message: bye
keyboards:
  main:
    buttons:
      - [Left, Right]
    options: [oneTime]
lexicons:
  en:
    greeting: Hello there
cron:
  heartbeat:
    trigger: 30s
    action:
      type: send
      params:
        message: still alive
        target:
          memory: ["ops-chat"]
`

func TestLoadSchema(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		sched := &fakeScheduler{}
		loader := schema.NewLoader(
			slog.New(slog.DiscardHandler), env.Engine, sched,
		)
		require.NoError(t, loader.Load(t.Context(), []byte(schemaDoc)))

		// scripts section compiled into the tree
		step, ok := env.Scripts.Lookup("c.hello")
		require.True(t, ok)
		assert.Equal(t, "greeting", step.Message.Text)

		// lexicons and keyboards resolve during rendering
		err := env.Engine.HandleUpdate(t.Context(), helpers.TextUpdate("hi"))
		require.NoError(t, err)
		sent := env.Bridge.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "Hello there", sent[0].Message)
		require.NotNil(t, sent[0].Keyboard)
		assert.Equal(t, "Left", sent[0].Keyboard.Buttons[0][0].Text)
		assert.Equal(t, []string{api.KeyboardOneTime},
			sent[0].Keyboard.Options)

		// cron section registered a recurring job
		require.Len(t, sched.jobs, 1)
		job := sched.jobs[0]
		assert.Equal(t, []string{"cron", "heartbeat"}, job.path)
		assert.Equal(t, 30*time.Second, job.every)

		env.Bridge.Reset()
		require.NoError(t, job.fn(t.Context()))
		fired := env.Bridge.Sent()
		require.Len(t, fired, 1)
		assert.Equal(t, "ops-chat", fired[0].PeerID)
		assert.Equal(t, "still alive", fired[0].Message)
	})
}

func TestLoadSchemaTemplates(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		loader := schema.NewLoader(
			slog.New(slog.DiscardHandler), env.Engine, nil,
		)
		require.NoError(t, loader.Load(t.Context(), []byte(schemaDoc)))

		env.LoadScript(t, `
c:
  leave: "$TEMPLATE farewell"
`)
		step, ok := env.Scripts.Lookup("c.leave")
		require.True(t, ok)
		assert.Equal(t, "bye", step.Message.Text)
	})
}

func TestLoadSchemaBadSectionIsSkipped(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		loader := schema.NewLoader(
			slog.New(slog.DiscardHandler), env.Engine, nil,
		)
		doc := `
keyboards: "not a mapping"
scripts:
  c:
    ok:
      trigger: hi
      message: fine
`
		require.NoError(t, loader.Load(t.Context(), []byte(doc)))
		_, ok := env.Scripts.Lookup("c.ok")
		assert.True(t, ok)
	})
}

func TestLoadSchemaNotMapping(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		loader := schema.NewLoader(
			slog.New(slog.DiscardHandler), env.Engine, nil,
		)
		err := loader.Load(t.Context(), []byte(`[1, 2, 3]`))
		assert.ErrorIs(t, err, schema.ErrSchemaNotMapping)
	})
}

func TestLoadSchemaCronWithoutScheduler(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		loader := schema.NewLoader(
			slog.New(slog.DiscardHandler), env.Engine, nil,
		)
		doc := `
cron:
  tick:
    trigger: 5s
    action:
      type: send
`
		assert.NoError(t, loader.Load(t.Context(), []byte(doc)))
	})
}
