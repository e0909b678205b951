package relmem

import (
	"log"
	"os"
)

// Debug switches on trace logging of allocation and lifetime events.
// cznic-memory guards its own diagnostic Fprintf calls behind a build-time
// trace constant; relmem keeps the same spirit as a runtime switch instead,
// since the engine is single-threaded and a package-level flag is safe to
// read in the hot path without any synchronization.
var Debug = false

// Trace is where Debug output is written. It defaults to stderr, the same
// destination cznic-memory's trace hook uses.
var Trace = log.New(os.Stderr, "relmem: ", log.LstdFlags)

func tracef(format string, args ...interface{}) {
	if Debug {
		Trace.Printf(format, args...)
	}
}
