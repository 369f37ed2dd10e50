package logger

import (
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"

	"github.com/olla-project/framework/internal/core/domain"
)

// LogContext groups the two argument sets a call site typically wants
// logged at different verbosity: UserArgs is always attached, while
// DetailedArgs is attached only when the caller opts into wider detail
// (e.g. debug builds, verbose flags).
type LogContext struct {
	UserArgs     []any
	DetailedArgs []any
}

func (c LogContext) merged(detailed bool) []any {
	if !detailed || len(c.DetailedArgs) == 0 {
		return c.UserArgs
	}
	return append(append([]any{}, c.UserArgs...), c.DetailedArgs...)
}

var (
	colorService       = pterm.FgCyan
	colorCounts        = pterm.FgLightMagenta
	colorNumbers       = pterm.FgLightBlue
	colorHealthy       = pterm.FgGreen
	colorUnhealthy     = pterm.FgRed
	colorUnknown       = pterm.FgYellow
)

// StyledLogger wraps slog.Logger with colour-highlighted formatting for
// the handful of values (service names, counts, health) that show up in
// nearly every log line this framework emits.
type StyledLogger struct {
	logger   *slog.Logger
	detailed bool
}

// NewStyledLogger wraps logger. detailed controls whether
// LogContext.DetailedArgs are attached to every *WithContext call.
func NewStyledLogger(logger *slog.Logger, detailed bool) *StyledLogger {
	return &StyledLogger{logger: logger, detailed: detailed}
}

// NewWithStyle builds both the base slog.Logger and its StyledLogger wrapper.
func NewWithStyle(cfg *Config, detailed bool) (*slog.Logger, *StyledLogger, func(), error) {
	base, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return base, NewStyledLogger(base, detailed), cleanup, nil
}

func (sl *StyledLogger) Debug(msg string, args ...any) { sl.logger.Debug(msg, args...) }
func (sl *StyledLogger) Info(msg string, args ...any)  { sl.logger.Info(msg, args...) }
func (sl *StyledLogger) Warn(msg string, args ...any)  { sl.logger.Warn(msg, args...) }
func (sl *StyledLogger) Error(msg string, args ...any) { sl.logger.Error(msg, args...) }

func (sl *StyledLogger) InfoWithCount(msg string, count int, args ...any) {
	styled := fmt.Sprintf("%s %s", msg, pterm.NewStyle(colorCounts).Sprintf("(%d)", count))
	sl.logger.Info(styled, args...)
}

// InfoWithService logs msg with the service name colour-highlighted,
// replacing olla's endpoint-specific InfoWithEndpoint.
func (sl *StyledLogger) InfoWithService(msg string, service string, args ...any) {
	styled := fmt.Sprintf("%s %s", msg, pterm.NewStyle(colorService).Sprint(service))
	sl.logger.Info(styled, args...)
}

func (sl *StyledLogger) WarnWithService(msg string, service string, args ...any) {
	styled := fmt.Sprintf("%s %s", msg, pterm.NewStyle(colorService).Sprint(service))
	sl.logger.Warn(styled, args...)
}

func (sl *StyledLogger) ErrorWithService(msg string, service string, args ...any) {
	styled := fmt.Sprintf("%s %s", msg, pterm.NewStyle(colorService).Sprint(service))
	sl.logger.Error(styled, args...)
}

func (sl *StyledLogger) InfoWithNumbers(msg string, numbers ...int64) {
	formatted := make([]any, 0, len(numbers))
	for _, n := range numbers {
		formatted = append(formatted, pterm.NewStyle(colorNumbers).Sprint(n))
	}
	sl.logger.Info(fmt.Sprintf(msg, formatted...))
}

func healthColor(status domain.HealthStatus) (pterm.Color, string) {
	switch status {
	case domain.HealthHealthy:
		return colorHealthy, "Healthy"
	case domain.HealthUnhealthy:
		return colorUnhealthy, "Unhealthy"
	default:
		return colorUnknown, "Unknown"
	}
}

// InfoServiceStatus logs "<msg> <name> is <status>" with the status word
// colour-coded, replacing olla's InfoHealthStatus (domain.EndpointStatus).
func (sl *StyledLogger) InfoServiceStatus(msg, name string, status domain.HealthStatus, args ...any) {
	color, text := healthColor(status)
	styled := fmt.Sprintf("%s %s is %s", msg, pterm.NewStyle(colorService).Sprint(name), pterm.NewStyle(color).Sprint(text))
	sl.logger.Info(styled, args...)
}

// WarnServiceStatus is the Warn-level counterpart of InfoServiceStatus,
// used when a status change degrades a previously healthy service.
func (sl *StyledLogger) WarnServiceStatus(msg, name string, status domain.HealthStatus, args ...any) {
	color, text := healthColor(status)
	styled := fmt.Sprintf("%s %s is %s", msg, pterm.NewStyle(colorService).Sprint(name), pterm.NewStyle(color).Sprint(text))
	sl.logger.Warn(styled, args...)
}

// InfoWithRegistryStats logs aggregate registry occupancy with each
// count colour-coded, replacing olla's InfoWithHealthStats.
func (sl *StyledLogger) InfoWithRegistryStats(msg string, healthy, unhealthy, unknown int, args ...any) {
	allArgs := make([]any, 0, len(args)+6)
	allArgs = append(allArgs, args...)
	allArgs = append(allArgs,
		"healthy", pterm.NewStyle(colorHealthy).Sprint(healthy),
		"unhealthy", pterm.NewStyle(colorUnhealthy).Sprint(unhealthy),
		"unknown", pterm.NewStyle(colorUnknown).Sprint(unknown),
	)
	sl.logger.Info(msg, allArgs...)
}

// InfoWithContext logs msg with ctx.UserArgs always attached and
// ctx.DetailedArgs attached only when this logger was built detailed.
func (sl *StyledLogger) InfoWithContext(msg string, ctx LogContext) {
	sl.logger.Info(msg, ctx.merged(sl.detailed)...)
}

func (sl *StyledLogger) WarnWithContext(msg string, ctx LogContext) {
	sl.logger.Warn(msg, ctx.merged(sl.detailed)...)
}

func (sl *StyledLogger) ErrorWithContext(msg string, ctx LogContext) {
	sl.logger.Error(msg, ctx.merged(sl.detailed)...)
}

// GetUnderlying returns the wrapped slog.Logger for call sites that need
// direct access (e.g. to pass into a third-party library's logger seam).
func (sl *StyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}

// WithAttrs returns a StyledLogger scoped with additional attributes.
func (sl *StyledLogger) WithAttrs(attrs ...slog.Attr) *StyledLogger {
	args := make([]any, 0, len(attrs)*2)
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value)
	}
	return &StyledLogger{logger: sl.logger.With(args...), detailed: sl.detailed}
}

// With returns a StyledLogger scoped with additional key-value pairs.
func (sl *StyledLogger) With(args ...any) *StyledLogger {
	return &StyledLogger{logger: sl.logger.With(args...), detailed: sl.detailed}
}
