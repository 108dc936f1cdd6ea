package types

type EndpointInfo struct {
	Name             string `json:"name"`
	RequestedVersion string `json:"requested_version"`
	ActualVersion    string `json:"actual_version"`
}

// Meta is the header every API response carries next to its data.
type Meta struct {
	ID            string       `json:"id"`
	Trx           string       `json:"trx"`
	Endpoint      EndpointInfo `json:"endpoint"`
	ResultCode    int          `json:"result_code"`
	ResultSubcode int          `json:"result_subcode"`
	ResultMsg     string       `json:"result_msg"`
	ErrorStack    string       `json:"error_stack"`
}

// Envelope wraps the data section of an API response.
type Envelope[T any] struct {
	Meta Meta `json:"meta"`
	Data T    `json:"data"`
}

type TaskRequest struct {
	Task string `json:"task"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type VariantValue struct {
	Name      string  `json:"name"`
	LastValue float64 `json:"last_value"`
}

type MetricRecord struct {
	Name     string         `json:"name"`
	Variants []VariantValue `json:"variants"`
}

// TaskSnapshot is the data returned by events.get_task_latest_scalar_values.
// Identity fields are pointers so an absent key can be told apart from a zero value.
type TaskSnapshot struct {
	Name     *string        `json:"name"`
	Status   *string        `json:"status"`
	LastIter *int64         `json:"last_iter"`
	Metrics  []MetricRecord `json:"metrics"`
}

type PlotRecord struct {
	Metric    string `json:"metric"`
	Variant   string `json:"variant"`
	Iter      int64  `json:"iter"`
	Timestamp int64  `json:"timestamp"`
	PlotStr   string `json:"plot_str"`
}

// PlotSnapshot is the data returned by events.get_task_plots.
type PlotSnapshot struct {
	Plots    []PlotRecord `json:"plots"`
	Total    int          `json:"total"`
	Returned int          `json:"returned"`
}
