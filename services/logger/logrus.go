// Package logsvc holds the core.Logger implementations.
package logsvc

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/PWRApex/english-prep-companion/core"
)

// LogrusLogger writes structured entries through logrus.
// Args are folded into fields: errors under "error", maps merged, a core.User under "user_id".
type LogrusLogger struct {
	entry *logrus.Entry
}

var _ core.Logger = (*LogrusLogger)(nil)

func NewLogrusLogger(conf *core.Config, out io.Writer) *LogrusLogger {
	if out == nil {
		out = os.Stderr
	}
	l := logrus.New()
	l.SetOutput(out)
	if strings.EqualFold(conf.LogFormat, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(conf.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if conf.Debug && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	return &LogrusLogger{entry: logrus.NewEntry(l).WithField("app", conf.AppName)}
}

// WithComponent returns a logger tagging every entry with `component`.
func (l *LogrusLogger) WithComponent(component string) *LogrusLogger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

func (l *LogrusLogger) with(args []interface{}) *logrus.Entry {
	if len(args) == 0 {
		return l.entry
	}
	fields := make(logrus.Fields, len(args))
	var extra []interface{}
	for _, arg := range args {
		switch v := arg.(type) {
		case error:
			fields[logrus.ErrorKey] = v
		case map[string]interface{}:
			for k, val := range v {
				fields[k] = val
			}
		case core.User:
			if !v.IsZero() {
				fields["user_id"] = v.ID
			}
		default:
			extra = append(extra, arg)
		}
	}
	if len(extra) > 0 {
		fields["args"] = extra
	}
	return l.entry.WithFields(fields)
}

func (l *LogrusLogger) Debug(msg string, args ...interface{}) { l.with(args).Debug(msg) }
func (l *LogrusLogger) Info(msg string, args ...interface{})  { l.with(args).Info(msg) }
func (l *LogrusLogger) Warn(msg string, args ...interface{})  { l.with(args).Warn(msg) }
func (l *LogrusLogger) Error(msg string, args ...interface{}) { l.with(args).Error(msg) }
func (l *LogrusLogger) Fatal(msg string, args ...interface{}) { l.with(args).Fatal(msg) }

// New builds the process logger: logrus, reporting to rollbar as well when a token is set outside debug.
func New(conf *core.Config, out io.Writer) core.Logger {
	local := NewLogrusLogger(conf, out)
	if conf.RollbarToken == "" {
		return local
	}
	rl := NewRollbarLogger(local, conf)
	rl.Enable(!conf.Debug)
	return rl
}
