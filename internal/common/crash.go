package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

var (
	crashDirMu sync.RWMutex
	crashDir   string
)

// InstallCrashHandler sets the directory crash reports are written to and
// creates it. Until it is called reports go to stderr only.
func InstallCrashHandler(dir string) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to create crash directory %s: %v\n", dir, err)
		return
	}
	crashDirMu.Lock()
	crashDir = dir
	crashDirMu.Unlock()
}

// CrashDir returns the directory set by InstallCrashHandler
func CrashDir() string {
	crashDirMu.RLock()
	defer crashDirMu.RUnlock()
	return crashDir
}

// WriteCrashFile writes a crash report and returns its path. kind prefixes the
// file name ("crash" for fatal panics, "panic" for recovered goroutines).
// An empty path means the report only went to stderr.
func WriteCrashFile(kind string, panicVal any, stackTrace string) string {
	report := buildCrashReport(kind, panicVal, stackTrace)

	dir := CrashDir()
	if dir == "" {
		fmt.Fprintf(os.Stderr, "%s", report)
		return ""
	}

	name := fmt.Sprintf("seoforge-%s-%s.log", kind, time.Now().Format("2006-01-02T15-04-05.000"))
	path := filepath.Join(dir, name)

	// Unbuffered write, the process may be going down
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to create crash file: %v\n%s", err, report)
		return ""
	}
	defer file.Close()

	if _, err := file.Write(report); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to write crash file: %v\n%s", err, report)
		return ""
	}
	_ = file.Sync()
	return path
}

func buildCrashReport(kind string, panicVal any, stackTrace string) []byte {
	var report bytes.Buffer

	fmt.Fprintf(&report, "=== SEOFORGE %s REPORT ===\n", kindTitle(kind))
	fmt.Fprintf(&report, "Time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&report, "Version: %s\n\n", GetFullVersion())

	fmt.Fprintf(&report, "=== PANIC VALUE ===\n%v\n\n", panicVal)
	fmt.Fprintf(&report, "=== STACK TRACE ===\n%s\n", stackTrace)

	if kind == "crash" {
		fmt.Fprintf(&report, "=== ALL GOROUTINES ===\n%s\n", allGoroutineStacks())
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	report.WriteString("=== SYSTEM INFO ===\n")
	fmt.Fprintf(&report, "NumGoroutine: %d\n", runtime.NumGoroutine())
	fmt.Fprintf(&report, "GOOS/GOARCH: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&report, "Alloc: %d MB\n", mem.Alloc/1024/1024)
	fmt.Fprintf(&report, "NumGC: %d\n", mem.NumGC)

	return report.Bytes()
}

func kindTitle(kind string) string {
	if kind == "crash" {
		return "CRASH"
	}
	return "PANIC"
}

// allGoroutineStacks grows the buffer until every stack fits, capped at 64MB
func allGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= 64*1024*1024 {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}

// StackTrace returns the calling goroutine's stack
func StackTrace() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// RecoverWithCrashFile is deferred at the top of main. A panic that reaches
// it is written to a crash file and the process exits with status 2.
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		path := WriteCrashFile("crash", r, StackTrace())
		fmt.Fprintf(os.Stderr, "\nseoforge crashed: %v\n", r)
		if path != "" {
			fmt.Fprintf(os.Stderr, "Report saved to %s\n", path)
		}
		os.Exit(2)
	}
}
