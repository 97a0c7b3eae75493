package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	Log             *slog.Logger
	defaultLevel    slog.Level
	componentLevels map[string]slog.Level
	levelsMu        sync.RWMutex
	format          string
	pid             int
	loggerCache     sync.Map
)

func init() {
	defaultLevel = slog.LevelInfo
	componentLevels = make(map[string]slog.Level)
	format = "text"
	pid = os.Getpid()

	handler := NewTextHandler(os.Stdout, nil, "")
	Log = slog.New(handler)
}

// Configure replaces the process-wide logging setup. Component levels
// override the default level for loggers obtained via Get.
func Configure(logFormat string, level LogLevel, components map[string]LogLevel) {
	levelsMu.Lock()
	defaultLevel = parseLevel(string(level))
	format = logFormat
	componentLevels = make(map[string]slog.Level)
	for name, lvl := range components {
		componentLevels[name] = parseLevel(string(lvl))
	}
	levelsMu.Unlock()

	loggerCache = sync.Map{}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: defaultLevel,
		})
	} else {
		handler = NewTextHandler(os.Stdout, nil, "")
	}

	Log = slog.New(handler)
}

type TextHandler struct {
	opts      *slog.HandlerOptions
	mu        sync.Mutex
	w         io.Writer
	attrs     []slog.Attr
	component string
}

func NewTextHandler(w io.Writer, opts *slog.HandlerOptions, component string) *TextHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &TextHandler{
		w:         w,
		opts:      opts,
		component: component,
	}
}

func (h *TextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= getEffectiveLevel(h.component)
}

func (h *TextHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	attrs := make(map[string]any)

	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Any()
	}

	buf := make([]byte, 0, 256)
	buf = append(buf, r.Time.Format("2006/01/02 15:04:05.000")...)
	buf = append(buf, fmt.Sprintf(" [%d]", pid)...)

	if h.component != "" {
		buf = append(buf, fmt.Sprintf(" [%s]", h.component)...)
	}

	buf = append(buf, ' ')
	buf = append(buf, r.Message...)

	for k, v := range attrs {
		buf = append(buf, fmt.Sprintf(" %s=%v", k, v)...)
	}

	buf = append(buf, '\n')
	_, err := h.w.Write(buf)
	return err
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TextHandler{
		w:         h.w,
		opts:      h.opts,
		attrs:     append(h.attrs, attrs...),
		component: h.component,
	}
}

func (h *TextHandler) WithGroup(name string) slog.Handler {
	newComponent := h.component
	if newComponent != "" {
		newComponent = newComponent + "." + name
	} else {
		newComponent = name
	}
	return &TextHandler{
		w:         h.w,
		opts:      h.opts,
		attrs:     h.attrs,
		component: newComponent,
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEffectiveLevel(component string) slog.Level {
	levelsMu.RLock()
	defer levelsMu.RUnlock()

	if level, ok := componentLevels[component]; ok {
		return level
	}

	path := component
	for {
		idx := strings.LastIndex(path, ".")
		if idx < 0 {
			break
		}
		path = path[:idx]
		if level, ok := componentLevels[path]; ok {
			return level
		}
	}

	return defaultLevel
}

type jsonHandler struct {
	inner     *slog.JSONHandler
	component string
}

func newJSONHandler(component string) *jsonHandler {
	return &jsonHandler{
		inner: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}),
		component: component,
	}
}

func (h *jsonHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= getEffectiveLevel(h.component)
}

func (h *jsonHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.component != "" {
		r.AddAttrs(slog.String("component", h.component))
	}
	return h.inner.Handle(ctx, r)
}

func (h *jsonHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &jsonHandler{
		inner:     h.inner.WithAttrs(attrs).(*slog.JSONHandler),
		component: h.component,
	}
}

func (h *jsonHandler) WithGroup(name string) slog.Handler {
	newComponent := h.component
	if newComponent != "" {
		newComponent = newComponent + "." + name
	} else {
		newComponent = name
	}
	return &jsonHandler{
		inner:     h.inner,
		component: newComponent,
	}
}

// Get returns the cached logger for a component name.
func Get(name string) *slog.Logger {
	if l, ok := loggerCache.Load(name); ok {
		return l.(*slog.Logger)
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = newJSONHandler(name)
	} else {
		handler = NewTextHandler(os.Stdout, nil, name)
	}

	l := slog.New(handler)
	loggerCache.Store(name, l)
	return l
}

// SubscriberAttrs carries the identifiers attached to every log line of a
// synchronization operation.
type SubscriberAttrs struct {
	Tenant    string
	Username  string
	Groupname string
	NasIP     string
}

func WithSubscriber(logger *slog.Logger, attrs SubscriberAttrs) *slog.Logger {
	args := make([]any, 0, 8)

	if attrs.Tenant != "" {
		args = append(args, "tenant", attrs.Tenant)
	}
	if attrs.Username != "" {
		args = append(args, "username", attrs.Username)
	}
	if attrs.Groupname != "" {
		args = append(args, "groupname", attrs.Groupname)
	}
	if attrs.NasIP != "" {
		args = append(args, "nas_ip", attrs.NasIP)
	}

	return logger.With(args...)
}
