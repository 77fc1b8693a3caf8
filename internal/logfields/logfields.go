package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyDocument   = "document"
	KeyDocClass   = "doc_class"
	KeyTarget     = "target"
	KeyTool       = "tool"
	KeyCommand    = "command"
	KeyArgs       = "args"
	KeyDir        = "dir"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyLogFile    = "log_file"
	KeySuffix     = "suffix"
	KeyDevice     = "device"
	KeyReruns     = "reruns"
	KeyMaxReruns  = "max_reruns"
	KeyExitCode   = "exit_code"
	KeyCode       = "code"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyName       = "name"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr { return slog.String(KeyBuildID, id) }
func Document(d string) slog.Attr { return slog.String(KeyDocument, d) }
func DocClass(c string) slog.Attr { return slog.String(KeyDocClass, c) }
func Target(t string) slog.Attr   { return slog.String(KeyTarget, t) }
func Tool(t string) slog.Attr     { return slog.String(KeyTool, t) }
func Command(c string) slog.Attr  { return slog.String(KeyCommand, c) }
func Args(a []string) slog.Attr   { return slog.Any(KeyArgs, a) }
func Dir(d string) slog.Attr      { return slog.String(KeyDir, d) }
func Path(p string) slog.Attr     { return slog.String(KeyPath, p) }
func File(f string) slog.Attr     { return slog.String(KeyFile, f) }
func LogFile(f string) slog.Attr  { return slog.String(KeyLogFile, f) }
func Suffix(s string) slog.Attr   { return slog.String(KeySuffix, s) }
func Device(d string) slog.Attr   { return slog.String(KeyDevice, d) }
func Reruns(n int) slog.Attr      { return slog.Int(KeyReruns, n) }
func MaxReruns(n int) slog.Attr   { return slog.Int(KeyMaxReruns, n) }
func ExitCode(c int) slog.Attr    { return slog.Int(KeyExitCode, c) }
func Code(c string) slog.Attr     { return slog.String(KeyCode, c) }
func Count(n int) slog.Attr       { return slog.Int(KeyCount, n) }
func Name(n string) slog.Attr     { return slog.String(KeyName, n) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
