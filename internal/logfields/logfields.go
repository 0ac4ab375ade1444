package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTemplateID = "template_id"
	KeyKind       = "kind"
	KeyPath       = "path"
	KeyDependency = "dependency"
	KeyChange     = "change"
	KeyEventID    = "event_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyOutput     = "output"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func TemplateID(id string) slog.Attr   { return slog.String(KeyTemplateID, id) }
func Kind(k string) slog.Attr          { return slog.String(KeyKind, k) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Dependency(id string) slog.Attr   { return slog.String(KeyDependency, id) }
func Change(c string) slog.Attr        { return slog.String(KeyChange, c) }
func EventID(id string) slog.Attr      { return slog.String(KeyEventID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Output(name string) slog.Attr     { return slog.String(KeyOutput, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
