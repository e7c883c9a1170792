package common

import (
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
)

// SafeGo runs fn in a goroutine. A panic is logged, written to a panic report
// when a crash directory is installed, and swallowed so the process keeps
// serving.
//
//	common.SafeGo(logger, "batch-run-"+id, func() {
//	    processor.execute(run)
//	})
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := StackTrace()
				if logger != nil {
					logger.Error().
						Str("goroutine", name).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", stack).
						Msg("Recovered from panic in goroutine")
				} else {
					fmt.Fprintf(os.Stderr, "PANIC in goroutine %s: %v\n%s\n", name, r, stack)
				}
				if CrashDir() != "" {
					WriteCrashFile("panic", fmt.Sprintf("goroutine %s: %v", name, r), stack)
				}
			}
		}()

		fn()
	}()
}
