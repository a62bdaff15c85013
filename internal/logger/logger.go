// Package logger builds the process slog.Logger: a colourised console handler
// for terminals or JSON for machines, both with secret redaction.
package logger

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"strings"

	"github.com/fatih/color"
)

// Format selects the handler.
type Format string

const (
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
)

// Options configures New.
type Options struct {
	Level  slog.Level
	Format Format
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	slogOpts := slog.HandlerOptions{
		Level:       opts.Level,
		ReplaceAttr: RedactSecrets,
	}
	if opts.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slogOpts))
	}
	return slog.New(NewPrettyHandler(w, PrettyHandlerOptions{SlogOpts: slogOpts}))
}

// ParseLevel maps a config string to a level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// PrettyHandlerOptions wraps the slog options used by PrettyHandler.
type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

// PrettyHandler prints "[time] LEVEL: message {attrs}" with a coloured level.
type PrettyHandler struct {
	slog.Handler
	l     *log.Logger
	opts  slog.HandlerOptions
	attrs []slog.Attr
	group string
}

// NewPrettyHandler creates a PrettyHandler writing to out.
func NewPrettyHandler(out io.Writer, opts PrettyHandlerOptions) *PrettyHandler {
	return &PrettyHandler{
		Handler: slog.NewJSONHandler(out, &opts.SlogOpts),
		l:       log.New(out, "", 0),
		opts:    opts.SlogOpts,
	}
}

// Handle formats one record.
func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	switch {
	case r.Level >= slog.LevelError:
		level = color.RedString(level)
	case r.Level >= slog.LevelWarn:
		level = color.YellowString(level)
	case r.Level >= slog.LevelInfo:
		level = color.BlueString(level)
	default:
		level = color.MagentaString(level)
	}

	fields := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		h.addAttr(fields, "", nil, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.addAttr(fields, h.group, nil, a)
		return true
	})

	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	timeStr := r.Time.Format("[15:04:05.000]")
	msg := color.CyanString(r.Message)

	h.l.Println(timeStr, level, msg, color.WhiteString(string(b)))
	return nil
}

// WithAttrs keeps attributes for later records.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.Handler = h.Handler.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), h.qualify(attrs)...)
	return &clone
}

// WithGroup prefixes later attribute keys with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.Handler = h.Handler.WithGroup(name)
	if h.group != "" {
		name = h.group + "." + name
	}
	clone.group = name
	return &clone
}

func (h *PrettyHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
	}
	return out
}

// addAttr stores a under prefix.key. Attributes from WithAttrs are already qualified.
func (h *PrettyHandler) addAttr(fields map[string]any, prefix string, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if h.opts.ReplaceAttr != nil && a.Value.Kind() != slog.KindGroup {
		a = h.opts.ReplaceAttr(groups, a)
	}
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		nested := make(map[string]any)
		for _, ga := range a.Value.Group() {
			h.addAttr(nested, "", append(groups, a.Key), ga)
		}
		fields[key] = nested
		return
	}
	fields[key] = a.Value.Any()
}

var secretKeys = []string{"key", "token", "secret", "password", "authorization", "bearer"}

var secretPrefixes = []string{"sk-", "ghp_", "gho_", "github_pat_"}

// RedactSecrets masks string attributes whose key or value looks like a credential.
// It is a slog ReplaceAttr hook.
func RedactSecrets(groups []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	s := a.Value.String()
	if s == "" {
		return a
	}

	lowerKey := strings.ToLower(a.Key)
	for _, k := range secretKeys {
		if strings.Contains(lowerKey, k) {
			return slog.String(a.Key, redact(s))
		}
	}
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return slog.String(a.Key, "Bearer "+redact(s[len("bearer "):]))
	}
	for _, p := range secretPrefixes {
		if strings.HasPrefix(s, p) {
			return slog.String(a.Key, redact(s))
		}
	}
	return a
}

func redact(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:3] + "***"
}
