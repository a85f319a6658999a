package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a logger at debug level, and failures at
// error level. It implements PipelineHooks, CacheHooks, and HTTPHooks.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks that log to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{logger: logger}
}

func (h *LogHooks) done(stage string, duration time.Duration, err error, kv ...any) {
	kv = append(kv, "duration", duration.Round(time.Microsecond))
	if err != nil {
		h.logger.Error(stage+" failed", append(kv, "err", err)...)
		return
	}
	h.logger.Debug(stage+" done", kv...)
}

func (h *LogHooks) OnGrayscaleStart(_ context.Context, font string, size float64) {
	h.logger.Debug("measuring glyphs", "font", font, "size", size)
}

func (h *LogHooks) OnGrayscaleComplete(_ context.Context, font string, size float64, cached bool, d time.Duration, err error) {
	h.done("grayscale", d, err, "font", font, "size", size, "cached", cached)
}

func (h *LogHooks) OnFillStart(_ context.Context, width, height, streams int) {
	h.logger.Debug("filling grid", "width", width, "height", height, "streams", streams)
}

func (h *LogHooks) OnFillComplete(_ context.Context, placed int, status string, d time.Duration, err error) {
	h.done("fill", d, err, "placed", placed, "status", status)
}

func (h *LogHooks) OnPaletteStart(_ context.Context, colors int) {
	h.logger.Debug("clustering colors", "colors", colors)
}

func (h *LogHooks) OnPaletteComplete(_ context.Context, colors int, cached bool, d time.Duration, err error) {
	h.done("palette", d, err, "colors", colors, "cached", cached)
}

func (h *LogHooks) OnRenderStart(_ context.Context, formats []string) {
	h.logger.Debug("rendering", "formats", formats)
}

func (h *LogHooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	h.done("render", d, err, "formats", formats)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, path string) {
	h.logger.Debug("request", "method", method, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.logger.Info("response", "method", method, "path", path, "status", status, "duration", d.Round(time.Microsecond))
}

func (h *LogHooks) OnError(_ context.Context, method, path string, err error) {
	h.logger.Error("request failed", "method", method, "path", path, "err", err)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
