package api

import (
	"fmt"
	"io"

	"github.com/labstack/gommon/log"

	"github.com/echolens-ai/echolens/internal/logger"
)

// echoLogger routes Echo's internal logging into the module logger so that
// framework messages share the application's format and destinations.
type echoLogger struct {
	log   logger.Logger
	level log.Lvl
}

func newEchoLogger(l logger.Logger, debug bool) *echoLogger {
	lvl := log.INFO
	if debug {
		lvl = log.DEBUG
	}
	return &echoLogger{log: l, level: lvl}
}

func (e *echoLogger) emit(lvl log.Lvl, msg string, fields ...logger.Field) {
	if lvl < e.level {
		return
	}
	switch lvl {
	case log.DEBUG:
		e.log.Debug(msg, fields...)
	case log.WARN:
		e.log.Warn(msg, fields...)
	case log.ERROR:
		e.log.Error(msg, fields...)
	default:
		e.log.Info(msg, fields...)
	}
}

func (e *echoLogger) emitJSON(lvl log.Lvl, j log.JSON) {
	e.emit(lvl, "echo", logger.Any("data", j))
}

// Output is discarded; the module logger owns the writers.
func (e *echoLogger) Output() io.Writer    { return io.Discard }
func (e *echoLogger) SetOutput(io.Writer)  {}
func (e *echoLogger) Prefix() string       { return "" }
func (e *echoLogger) SetPrefix(string)     {}
func (e *echoLogger) Level() log.Lvl       { return e.level }
func (e *echoLogger) SetLevel(lvl log.Lvl) { e.level = lvl }
func (e *echoLogger) SetHeader(string)     {}
func (e *echoLogger) Print(i ...any)       { e.emit(log.INFO, fmt.Sprint(i...)) }
func (e *echoLogger) Printf(f string, a ...any) {
	e.emit(log.INFO, fmt.Sprintf(f, a...))
}
func (e *echoLogger) Printj(j log.JSON) { e.emitJSON(log.INFO, j) }
func (e *echoLogger) Debug(i ...any)    { e.emit(log.DEBUG, fmt.Sprint(i...)) }
func (e *echoLogger) Debugf(f string, a ...any) {
	e.emit(log.DEBUG, fmt.Sprintf(f, a...))
}
func (e *echoLogger) Debugj(j log.JSON) { e.emitJSON(log.DEBUG, j) }
func (e *echoLogger) Info(i ...any)     { e.emit(log.INFO, fmt.Sprint(i...)) }
func (e *echoLogger) Infof(f string, a ...any) {
	e.emit(log.INFO, fmt.Sprintf(f, a...))
}
func (e *echoLogger) Infoj(j log.JSON) { e.emitJSON(log.INFO, j) }
func (e *echoLogger) Warn(i ...any)    { e.emit(log.WARN, fmt.Sprint(i...)) }
func (e *echoLogger) Warnf(f string, a ...any) {
	e.emit(log.WARN, fmt.Sprintf(f, a...))
}
func (e *echoLogger) Warnj(j log.JSON) { e.emitJSON(log.WARN, j) }
func (e *echoLogger) Error(i ...any)   { e.emit(log.ERROR, fmt.Sprint(i...)) }
func (e *echoLogger) Errorf(f string, a ...any) {
	e.emit(log.ERROR, fmt.Sprintf(f, a...))
}
func (e *echoLogger) Errorj(j log.JSON) { e.emitJSON(log.ERROR, j) }

// Fatal and Panic never exit the process; the panic is caught by the
// recover middleware or the server goroutine.
func (e *echoLogger) Fatal(i ...any) { e.Panic(i...) }
func (e *echoLogger) Fatalf(f string, a ...any) {
	e.Panicf(f, a...)
}
func (e *echoLogger) Fatalj(j log.JSON) { e.Panicj(j) }
func (e *echoLogger) Panic(i ...any) {
	msg := fmt.Sprint(i...)
	e.log.Error(msg)
	panic(msg)
}
func (e *echoLogger) Panicf(f string, a ...any) {
	msg := fmt.Sprintf(f, a...)
	e.log.Error(msg)
	panic(msg)
}
func (e *echoLogger) Panicj(j log.JSON) {
	e.log.Error("echo", logger.Any("data", j))
	panic(fmt.Sprint(j))
}
