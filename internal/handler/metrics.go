package handler

const (
	UnitCount        = "Count"
	UnitMilliseconds = "Milliseconds"

	defaultMetricNamespace = "Peliculas"
)

func (h *Context) Metric(metricName string) *MetricBuilder {
	return &MetricBuilder{
		handlerCtx: h,
		name:       metricName,
	}
}

type MetricBuilder struct {
	handlerCtx *Context
	name       string
	dimensions map[string]any
	unit       *string
	value      any
}

func (m *MetricBuilder) Dimension(key string, value any) *MetricBuilder {
	if m.dimensions == nil {
		m.dimensions = make(map[string]any)
	}
	m.dimensions[key] = value
	return m
}

func (m *MetricBuilder) Unit(value string) *MetricBuilder {
	m.unit = &value
	return m
}

// Value records the metric. It is written when the invocation finishes.
func (m *MetricBuilder) Value(value any) {
	m.value = value
	m.handlerCtx.metrics = append(m.handlerCtx.metrics, m)
}

// Count records a value of 1 with the Count unit.
func (m *MetricBuilder) Count() {
	m.Unit(UnitCount).Value(1)
}

// flushMetrics writes recorded metrics in CloudWatch embedded metric format.
// In combined mode they join the story line, otherwise they get their own line.
func (h *Context) flushMetrics() {
	if len(h.metrics) < 1 {
		return
	}

	namespace := GetEnv("METRIC_NAMESPACE")
	if namespace == "" {
		namespace = defaultMetricNamespace
	}

	values := make(map[string]any)
	metricList := make([]cwMetricOuter, 0, len(h.metrics))
	for _, m := range h.metrics {
		dimensions := make([][]string, 0, 1)
		if len(m.dimensions) > 0 {
			dimKeys := make([]string, 0, len(m.dimensions))
			for k, v := range m.dimensions {
				dimKeys = append(dimKeys, k)
				values[k] = v
			}
			dimensions = append(dimensions, dimKeys)
		}

		metricList = append(metricList, cwMetricOuter{
			Namespace:  namespace,
			Dimensions: dimensions,
			Metrics: []cwMetricInner{{
				Name: m.name,
				Unit: m.unit,
			}},
		})
		values[m.name] = m.value
	}
	h.metrics = nil

	awsMetrics := cwMetrics{
		Metrics:   metricList,
		Timestamp: now().UnixMilli(),
	}

	logger := h.GetLogger()
	if logger.combinedMode {
		for k, v := range values {
			logger.AddParam(k, v)
		}
		logger.AddParam("_aws", awsMetrics)
		return
	}

	args := make([]any, 0, 2*len(values)+2)
	for k, v := range values {
		args = append(args, k, v)
	}
	args = append(args, "_aws", awsMetrics)
	logger.writeTopLevel("metrics", args...)
}

type cwMetrics struct {
	Metrics   []cwMetricOuter `json:"CloudWatchMetrics"`
	Timestamp int64           `json:"Timestamp"`
}

type cwMetricOuter struct {
	Namespace  string          `json:"Namespace"`
	Dimensions [][]string      `json:"Dimensions"`
	Metrics    []cwMetricInner `json:"Metrics"`
}

type cwMetricInner struct {
	Name              string  `json:"Name"`
	Unit              *string `json:"Unit,omitempty"`
	StorageResolution *int    `json:"StorageResolution,omitempty"`
}
