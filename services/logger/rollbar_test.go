package logsvc

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mwalimu/core"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	conf := &core.Config{Env: "TEST", TestMode: true}
	logger := NewRollbarLogger(log.New(&buf, "", 0), conf)

	sess := core.Session{UserID: "user-1", Email: "teach@test.cd", Role: core.RoleInstructor}
	logger.Error("creating chapter", errors.New("boom"), map[string]interface{}{"course": "c1"}, sess)

	out := buf.String()
	assert.Contains(t, out, "ERROR: creating chapter")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "map[course:c1]")
	assert.NotContains(t, out, "teach@test.cd")
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := RollbarLogger{std: log.New(&bytes.Buffer{}, "", 0)}
	err := errors.New("boom")
	sess := core.Session{UserID: "user-1", Name: "Teach", Email: "teach@test.cd"}
	other := core.Session{UserID: "user-2"}

	args := logger.prepare("msg", []interface{}{err, sess, &other})
	require.Len(t, args, 3)
	assert.Equal(t, []interface{}{"msg", err}, args[:2])

	ctx, ok := args[2].(context.Context)
	require.True(t, ok)
	person, ok := rollbar.PersonFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, &rollbar.Person{Id: "user-1", Username: "Teach", Email: "teach@test.cd"}, person)

	args = logger.prepare("msg", []interface{}{err})
	assert.Equal(t, []interface{}{"msg", err}, args, "no session, no context")
}

func Test_stackTracer(t *testing.T) {
	frames, ok := stackTracer(errors.Wrap(errors.New("boom"), "wrapped"))
	assert.True(t, ok)
	assert.NotEmpty(t, frames)

	_, ok = stackTracer(assert.AnError)
	assert.False(t, ok)
}
