package logger

import (
	"log/slog"
	"reflect"
)

// BuildLogValue returns a slog.Value for v with the named top-level struct
// fields redacted, used to log the orchestrator's AppConfig at startup
// without leaking VaultToken or SecretText.
func BuildLogValue(v any, redact ...string) slog.Value {
	redactSet := make(map[string]struct{}, len(redact))
	for _, name := range redact {
		redactSet[name] = struct{}{}
	}

	return slog.AnyValue(buildPlain(reflect.ValueOf(v), redactSet))
}

func buildPlain(rv reflect.Value, redactSet map[string]struct{}) any {
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}

		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		if rv.IsValid() && rv.CanInterface() {
			return rv.Interface()
		}

		return nil
	}

	rt := rv.Type()
	out := make(map[string]any, rt.NumField())

	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}

		if _, ok := redactSet[f.Name]; ok {
			out[f.Name] = "REDACTED"
			continue
		}

		out[f.Name] = rv.Field(i).Interface()
	}

	return out
}
