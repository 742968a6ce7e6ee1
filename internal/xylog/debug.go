// Package xylog is xylu's debug logger: an env-var-gated, per-tag logger
// written through the standard log package, modeled directly on restic's
// internal/debug. It backs the "abstract logger" capability spec.md §6
// assumes the core consumes, and the host's K_LOG_MEMPOOL log-level gate
// in the original C++ source.
package xylog

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var opts struct {
	enabled bool
	logger  *log.Logger
	tags    map[string]bool
}

func init() {
	initLogger()
	initTags()
	opts.enabled = opts.logger != nil || len(opts.tags) > 0
}

func initLogger() {
	path := os.Getenv("XYLU_DEBUG_LOG")
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xylog: unable to open debug log file: %v\n", err)
		return
	}
	opts.logger = log.New(f, "", log.LstdFlags)
}

func initTags() {
	env := os.Getenv("XYLU_DEBUG")
	if env == "" {
		return
	}
	opts.tags = make(map[string]bool)
	for _, tag := range strings.Split(env, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			opts.tags[tag] = true
		}
	}
}

func enabledFor(tag string) bool {
	if !opts.enabled {
		return false
	}
	if opts.tags == nil {
		return true
	}
	return opts.tags["all"] || opts.tags[tag]
}

func callerTag() string {
	pc, _, _, ok := runtime.Caller(2)
	if !ok {
		return "?"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "?"
	}
	return filepath.Base(fn.Name())
}

// Log writes a formatted debug line tagged with the calling function's
// name, if that tag (or "all") is enabled via XYLU_DEBUG. It is the
// logging half of the core's abstract Logger capability; within xylu it
// is called by xycache's put/evict bookkeeping and by the hashtable
// package's startup report, never on the pool's allocate path or the
// table's lookup path (the allocator's misuse path uses Warn).
func Log(format string, args ...interface{}) {
	tag := callerTag()
	if !enabledFor(tag) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if opts.logger != nil {
		opts.logger.Printf("%s: %s", tag, msg)
		return
	}
	fmt.Fprintf(os.Stderr, "DEBUG[%s] %s\n", tag, msg)
}

// Warn always writes, regardless of XYLU_DEBUG, matching the original
// source's xylogw (warning-level misuse logging that is never silenced).
func Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if opts.logger != nil {
		opts.logger.Printf("WARN: %s", msg)
		return
	}
	fmt.Fprintf(os.Stderr, "WARN: %s\n", msg)
}

// Logger is the narrow interface Pool and Table hold instead of calling
// package-level functions directly, so callers can substitute their own
// sink (e.g. to route misuse warnings into a structured logger).
type Logger interface {
	Log(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

type defaultLogger struct{}

func (defaultLogger) Log(format string, args ...interface{})  { Log(format, args...) }
func (defaultLogger) Warn(format string, args ...interface{}) { Warn(format, args...) }

// Default returns the package-level Logger backed by Log/Warn above.
// Log calls made through it are tagged with the wrapper method's name
// (xylog.defaultLogger.Log), not with the name of the function that
// called the Logger.
func Default() Logger { return defaultLogger{} }
