package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName             = "eproba-editor/api"
	editorSpanName         = "editor.request"
	editorEventName        = "eproba.editor.request"
	editorEventDomain      = "app"
	observabilityEventName = "observability.event"

	attrRoute        = "http.route"
	attrStatusCode   = "http.status_code"
	attrOperation    = "eproba.editor.operation"
	attrChanged      = "eproba.editor.changed"
	attrTasks        = "eproba.editor.tasks"
	attrAttempts     = "eproba.editor.save_attempts"
	attrTotalMillis  = "eproba.editor.total_ms"
	attrAuthMillis   = "eproba.editor.auth_ms"
	attrLoadMillis   = "eproba.editor.load_ms"
	attrApplyMillis  = "eproba.editor.apply_ms"
	attrSaveMillis   = "eproba.editor.save_ms"
	attrErrorStage   = "eproba.editor.error_stage"
	attrErrorMessage = "error.message"
)

// editorRequestMetrics times the phases of one editor request and reports
// them as a span plus one observability.event log line.
type editorRequestMetrics struct {
	logger    *log.Logger
	span      trace.Span
	start     time.Time
	route     string
	operation string

	authDuration  time.Duration
	loadDuration  time.Duration
	applyDuration time.Duration
	saveDuration  time.Duration
	attempts      int
	tasks         int
	changed       bool
	errorStage    string
	errorMessage  string
}

func newEditorRequestMetrics(ctx context.Context, logger *log.Logger, route, operation string) (*editorRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, editorSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(attrRoute, route),
			attribute.String(attrOperation, operation),
		),
	)
	return &editorRequestMetrics{
		logger:    logger,
		span:      span,
		start:     time.Now(),
		route:     route,
		operation: operation,
	}, spanCtx
}

func (m *editorRequestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

// ObserveLoad, ObserveApply and ObserveSave accumulate across save retries.
func (m *editorRequestMetrics) ObserveLoad(d time.Duration) {
	if d > 0 {
		m.loadDuration += d
	}
}

func (m *editorRequestMetrics) ObserveApply(d time.Duration) {
	if d > 0 {
		m.applyDuration += d
	}
}

func (m *editorRequestMetrics) ObserveSave(d time.Duration) {
	if d > 0 {
		m.saveDuration += d
	}
	m.attempts++
}

func (m *editorRequestMetrics) SetTasks(count int) {
	if count < 0 {
		count = 0
	}
	m.tasks = count
}

func (m *editorRequestMetrics) SetChanged(changed bool) {
	m.changed = changed
}

func (m *editorRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Fail records the stage and cause of a request that was answered with an
// error response.
func (m *editorRequestMetrics) Fail(stage string, err error) {
	m.SetErrorStage(stage)
	if err != nil {
		m.errorMessage = err.Error()
	}
}

func (m *editorRequestMetrics) attributes(status int, err error) map[string]any {
	attrs := map[string]any{
		attrRoute:       m.route,
		attrStatusCode:  status,
		attrOperation:   m.operation,
		attrChanged:     m.changed,
		attrTasks:       m.tasks,
		attrAttempts:    m.attempts,
		attrTotalMillis: durationToMillis(time.Since(m.start)),
	}
	if m.authDuration > 0 {
		attrs[attrAuthMillis] = durationToMillis(m.authDuration)
	}
	if m.loadDuration > 0 {
		attrs[attrLoadMillis] = durationToMillis(m.loadDuration)
	}
	if m.applyDuration > 0 {
		attrs[attrApplyMillis] = durationToMillis(m.applyDuration)
	}
	if m.saveDuration > 0 {
		attrs[attrSaveMillis] = durationToMillis(m.saveDuration)
	}
	if m.errorStage != "" {
		attrs[attrErrorStage] = m.errorStage
	}
	switch {
	case err != nil:
		attrs[attrErrorMessage] = err.Error()
	case m.errorMessage != "":
		attrs[attrErrorMessage] = m.errorMessage
	}
	return attrs
}

// Log ends the span and writes the observability event.
func (m *editorRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	attrs := m.attributes(status, err)
	severityText, severityNumber := severityForStatus(status, err)

	if m.span != nil {
		m.span.SetAttributes(
			attribute.Int(attrStatusCode, status),
			attribute.Bool(attrChanged, m.changed),
			attribute.Int(attrTasks, m.tasks),
		)
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String(attrErrorStage, m.errorStage))
		}
		eventAttrs := []attribute.KeyValue{
			attribute.String("event.name", editorEventName),
			attribute.String("event.domain", editorEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}
		for k, v := range attrs {
			eventAttrs = append(eventAttrs, toAttribute(k, v))
		}
		m.span.AddEvent(observabilityEventName, trace.WithAttributes(eventAttrs...))
		if err != nil || status >= http.StatusInternalServerError {
			desc := http.StatusText(status)
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      editorEventName,
		"event.domain":    editorEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrs,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}
	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error(observabilityEventName)
	case "WARN":
		entry.Warn(observabilityEventName)
	default:
		entry.Info(observabilityEventName)
	}
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func toAttribute(key string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(key, val)
	case bool:
		return attribute.Bool(key, val)
	case int:
		return attribute.Int(key, val)
	case float64:
		return attribute.Float64(key, val)
	default:
		return attribute.String(key, fmt.Sprint(val))
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
