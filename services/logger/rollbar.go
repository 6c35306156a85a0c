package logsvc

import (
	"context"
	"log"
	"runtime"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"

	"github.com/trezcool/mwalimu/core"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(stackTracer)
	l := &RollbarLogger{std: std}
	l.Enable(!(conf.Debug || conf.TestMode) && conf.RollbarToken != "")
	return l
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// stackTracer reports the stack recorded by pkg/errors, if any.
func stackTracer(err error) ([]runtime.Frame, bool) {
	var st interface{ StackTrace() errors.StackTrace }
	if !errors.As(err, &st) {
		return nil, false
	}
	trace := st.StackTrace()
	pcs := make([]uintptr, 0, len(trace))
	for _, f := range trace {
		pcs = append(pcs, uintptr(f))
	}
	frames := runtime.CallersFrames(pcs)
	out := make([]runtime.Frame, 0, len(pcs))
	for {
		frame, more := frames.Next()
		out = append(out, frame)
		if !more {
			break
		}
	}
	return out, true
}

// expected fmt: msg | error, map[string]interface{}, core.Session
// The session user is attached to the item through its context, never globally.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var person *rollbar.Person
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		var sess *core.Session
		switch s := arg.(type) {
		case core.Session:
			sess = &s
		case *core.Session:
			sess = s
		}
		switch {
		case sess == nil:
			newArgs = append(newArgs, arg)
		case person == nil: // only set one person
			person = &rollbar.Person{Id: sess.UserID, Username: sess.Name, Email: sess.Email}
		}
	}
	if person != nil {
		newArgs = append(newArgs, rollbar.NewPersonContext(context.Background(), person))
	}
	return newArgs
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("%s: %s", level, msg)
	for _, arg := range args {
		switch arg.(type) {
		case core.Session, *core.Session: // skip
		default:
			l.std.Printf("%+v\n", arg)
		}
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print("DEBUG", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print("INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print("WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print("ERROR", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print("FATAL", msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
