package main

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	editorEventName   = "eproba.editor.request"
	editorEventDomain = "app"

	attrHTTPStatusCode = "http.status_code"
	attrOperation      = "eproba.editor.operation"
	attrChanged        = "eproba.editor.changed"
	attrTasks          = "eproba.editor.tasks"
	attrAttempts       = "eproba.editor.save_attempts"
	attrErrorStage     = "eproba.editor.error_stage"
)

// phaseAttributes maps the duration attributes to their summary keys.
var phaseAttributes = map[string]string{
	"eproba.editor.total_ms": "total",
	"eproba.editor.auth_ms":  "auth",
	"eproba.editor.load_ms":  "load",
	"eproba.editor.apply_ms": "apply",
	"eproba.editor.save_ms":  "save",
}

// logRecord is one observability.event line as written by the JSON formatter.
type logRecord struct {
	EventName    string         `json:"event.name"`
	EventDomain  string         `json:"event.domain"`
	SeverityText string         `json:"severity_text"`
	Attributes   map[string]any `json:"attributes"`
}

type collector struct {
	eventName   string
	eventDomain string
	skipped     int

	count          int
	severityCounts map[string]int
	statusCounts   map[int]int
	durations      map[string]*numericStats
	attempts       *numericStats
	tasks          *numericStats
	operations     map[string]*operationStats
	errorStages    map[string]int
	errorEvents    int
	warnEvents     int
}

type operationStats struct {
	count   int
	changed int
	total   *numericStats
}

type numericStats struct {
	Count int
	Sum   float64
	Min   float64
	Max   float64
}

type numericSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

type operationSummary struct {
	Count      int     `json:"count"`
	Changed    int     `json:"changed"`
	AvgTotalMs float64 `json:"avg_total_ms"`
	MaxTotalMs float64 `json:"max_total_ms"`
}

type summaryOutput struct {
	EventName      string                      `json:"event_name"`
	EventDomain    string                      `json:"event_domain"`
	TotalEvents    int                         `json:"total_events"`
	SeverityCounts map[string]int              `json:"severity_counts"`
	StatusCounts   map[string]int              `json:"status_counts"`
	DurationMs     map[string]numericSummary   `json:"duration_ms"`
	Operations     map[string]operationSummary `json:"operations"`
	SaveAttempts   numericSummary              `json:"save_attempts"`
	Tasks          numericSummary              `json:"tasks"`
	ErrorStages    map[string]int              `json:"error_stages,omitempty"`
	ErrorEvents    int                         `json:"error_events"`
	WarnEvents     int                         `json:"warn_events"`
	SkippedLines   int                         `json:"skipped_lines"`
}

func newCollector(eventName, eventDomain string) *collector {
	return &collector{
		eventName:      eventName,
		eventDomain:    eventDomain,
		severityCounts: make(map[string]int),
		statusCounts:   make(map[int]int),
		durations:      make(map[string]*numericStats),
		attempts:       newNumericStats(),
		tasks:          newNumericStats(),
		operations:     make(map[string]*operationStats),
		errorStages:    make(map[string]int),
	}
}

// ingest accepts a raw log line. Container log prefixes ending in "|" are
// stripped; lines that are not JSON are counted as skipped.
func (c *collector) ingest(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	if pipe := strings.Index(trimmed, "|"); pipe >= 0 && !strings.HasPrefix(trimmed, "{") {
		trimmed = strings.TrimSpace(trimmed[pipe+1:])
	}

	var rec logRecord
	if err := sonic.UnmarshalString(trimmed, &rec); err != nil {
		c.skipped++
		return
	}
	if rec.EventName != c.eventName {
		return
	}
	if c.eventDomain != "" && rec.EventDomain != c.eventDomain {
		return
	}
	c.add(rec)
}

func (c *collector) add(rec logRecord) {
	c.count++

	severity := strings.ToUpper(strings.TrimSpace(rec.SeverityText))
	if severity == "" {
		severity = "UNSPECIFIED"
	}
	c.severityCounts[severity]++
	switch severity {
	case "ERROR":
		c.errorEvents++
	case "WARN", "WARNING":
		c.warnEvents++
	}

	attrs := rec.Attributes
	if attrs == nil {
		return
	}
	if status, ok := asInt(attrs[attrHTTPStatusCode]); ok {
		c.statusCounts[status]++
	}
	for attr, key := range phaseAttributes {
		if v, ok := asFloat(attrs[attr]); ok {
			c.duration(key).add(v)
		}
	}
	if v, ok := asFloat(attrs[attrAttempts]); ok {
		c.attempts.add(v)
	}
	if v, ok := asFloat(attrs[attrTasks]); ok {
		c.tasks.add(v)
	}
	if stage, ok := attrs[attrErrorStage].(string); ok && stage != "" {
		c.errorStages[stage]++
	}

	name, _ := attrs[attrOperation].(string)
	if name == "" {
		name = "unknown"
	}
	op, ok := c.operations[name]
	if !ok {
		op = &operationStats{total: newNumericStats()}
		c.operations[name] = op
	}
	op.count++
	if changed, _ := attrs[attrChanged].(bool); changed {
		op.changed++
	}
	if v, ok := asFloat(attrs["eproba.editor.total_ms"]); ok {
		op.total.add(v)
	}
}

func (c *collector) duration(key string) *numericStats {
	stat, ok := c.durations[key]
	if !ok {
		stat = newNumericStats()
		c.durations[key] = stat
	}
	return stat
}

func newNumericStats() *numericStats {
	return &numericStats{Min: math.MaxFloat64}
}

func (n *numericStats) add(value float64) {
	n.Count++
	n.Sum += value
	if value < n.Min {
		n.Min = value
	}
	if value > n.Max {
		n.Max = value
	}
}

func (n *numericStats) summary() numericSummary {
	if n == nil || n.Count == 0 {
		return numericSummary{}
	}
	return numericSummary{
		Count: n.Count,
		Min:   n.Min,
		Max:   n.Max,
		Avg:   n.Sum / float64(n.Count),
	}
}

func (c *collector) summary() summaryOutput {
	durations := make(map[string]numericSummary, len(c.durations))
	for key, stat := range c.durations {
		durations[key] = stat.summary()
	}
	statusCounts := make(map[string]int, len(c.statusCounts))
	for status, count := range c.statusCounts {
		statusCounts[strconv.Itoa(status)] = count
	}
	operations := make(map[string]operationSummary, len(c.operations))
	for name, op := range c.operations {
		total := op.total.summary()
		operations[name] = operationSummary{
			Count:      op.count,
			Changed:    op.changed,
			AvgTotalMs: total.Avg,
			MaxTotalMs: total.Max,
		}
	}
	var stages map[string]int
	if len(c.errorStages) > 0 {
		stages = make(map[string]int, len(c.errorStages))
		for k, v := range c.errorStages {
			stages[k] = v
		}
	}
	severity := make(map[string]int, len(c.severityCounts))
	for k, v := range c.severityCounts {
		severity[k] = v
	}

	return summaryOutput{
		EventName:      c.eventName,
		EventDomain:    c.eventDomain,
		TotalEvents:    c.count,
		SeverityCounts: severity,
		StatusCounts:   statusCounts,
		DurationMs:     durations,
		Operations:     operations,
		SaveAttempts:   c.attempts.summary(),
		Tasks:          c.tasks.summary(),
		ErrorStages:    stages,
		ErrorEvents:    c.errorEvents,
		WarnEvents:     c.warnEvents,
		SkippedLines:   c.skipped,
	}
}

// ShortString renders a one-line digest for CI logs.
func (s summaryOutput) ShortString() string {
	total := s.DurationMs["total"]
	ops := make([]string, 0, len(s.Operations))
	for name, op := range s.Operations {
		ops = append(ops, name+":"+strconv.Itoa(op.Count))
	}
	sort.Strings(ops)
	parts := []string{
		"event=" + s.EventName,
		"total=" + strconv.Itoa(s.TotalEvents),
		"warn=" + strconv.Itoa(s.WarnEvents),
		"error=" + strconv.Itoa(s.ErrorEvents),
		"avg_total_ms=" + formatFloat(total.Avg),
		"max_total_ms=" + formatFloat(total.Max),
	}
	if len(ops) > 0 {
		parts = append(parts, "ops="+strings.Join(ops, ","))
	}
	return strings.Join(parts, " ")
}

func formatFloat(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asInt(value any) (int, bool) {
	f, ok := asFloat(value)
	if !ok {
		return 0, false
	}
	return int(f), true
}
