// emitter_verbose.go - an Emitter that also logs every event
//
// (c) 2024 Sudhi Herle <sudhi@herle.net>
//
// Licensing Terms: GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package main

import (
	"io"

	dircmp "github.com/opencoff/go-dircmp"
	"github.com/opencoff/go-logger"
)

// verboseEmitter wraps a LineEmitter and additionally logs a debug trace
// of every event to stderr, grounded on testsuite/run.go's
// logger.NewLogger usage.
type verboseEmitter struct {
	lines *dircmp.LineEmitter
	log   logger.Logger
}

func newVerboseEmitter(out, _ io.Writer) *verboseEmitter {
	log, err := logger.NewLogger("STDERR", logger.LOG_DEBUG, Z, logger.Ldate|logger.Ltime|logger.Lmicroseconds)
	if err != nil {
		Die("logger: %s", err)
	}
	return &verboseEmitter{
		lines: dircmp.NewLineEmitter(out),
		log:   log,
	}
}

func (e *verboseEmitter) Emit(leftRoot, rightRoot string, ev dircmp.DiffEvent) {
	e.log.Debug("%s <-> %s: %s", leftRoot, rightRoot, ev.Path())
	e.lines.Emit(leftRoot, rightRoot, ev)
}

var _ dircmp.Emitter = &verboseEmitter{}
