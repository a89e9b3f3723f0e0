package registry

// Statistics value shapes exposed by pool-style management objects. The
// converter gives these custom traversal via extraction handlers.

// BaseStatistics carries the fields shared by all statistics values.
type BaseStatistics struct {
	StartTime      int64 `json:"start_time"`
	LastSampleTime int64 `json:"last_sample_time"`
}

// RangeValue is a watermarked gauge.
type RangeValue struct {
	Current int64 `json:"current"`
	Low     int64 `json:"low"`
	High    int64 `json:"high"`
}

// TimeValue aggregates a duration statistic in milliseconds.
type TimeValue struct {
	Count int64 `json:"count"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
	Total int64 `json:"total"`
}

// DataSourceStatistics describes the backing source of a connection pool.
type DataSourceStatistics struct {
	BaseStatistics
	Name           string `json:"name"`
	MaxConnections int64  `json:"max_connections"`
	CreateCount    int64  `json:"create_count"`
	CloseCount     int64  `json:"close_count"`
}

// PoolStatistics is a composite connection-pool statistics value: a fixed
// set of named sub-sections plus a reference to the data source composite.
type PoolStatistics struct {
	BaseStatistics
	Active     RangeValue
	Idle       RangeValue
	WaitTime   TimeValue
	UseTime    TimeValue
	DataSource *DataSourceStatistics
}
