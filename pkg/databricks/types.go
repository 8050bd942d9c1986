package databricks

// Cluster is an all-purpose or job compute cluster.
type Cluster struct {
	ClusterID       string `json:"cluster_id"`
	ClusterName     string `json:"cluster_name"`
	State           string `json:"state"`
	SparkVersion    string `json:"spark_version,omitempty"`
	NodeTypeID      string `json:"node_type_id,omitempty"`
	NumWorkers      int    `json:"num_workers,omitempty"`
	CreatorUserName string `json:"creator_user_name,omitempty"`
}

// Warehouse is a SQL warehouse.
type Warehouse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	State         string `json:"state"`
	ClusterSize   string `json:"cluster_size,omitempty"`
	WarehouseType string `json:"warehouse_type,omitempty"`
	AutoStopMins  int    `json:"auto_stop_mins,omitempty"`
}

// Catalog is a Unity Catalog catalog.
type Catalog struct {
	Name        string `json:"name"`
	Owner       string `json:"owner,omitempty"`
	Comment     string `json:"comment,omitempty"`
	CatalogType string `json:"catalog_type,omitempty"`
}

// Schema is a Unity Catalog schema.
type Schema struct {
	Name        string `json:"name"`
	CatalogName string `json:"catalog_name"`
	FullName    string `json:"full_name,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

// JobSettings holds the user-facing part of a job definition.
type JobSettings struct {
	Name string `json:"name"`
}

// Job is a Lakeflow job.
type Job struct {
	JobID           int64       `json:"job_id"`
	CreatorUserName string      `json:"creator_user_name,omitempty"`
	CreatedTime     int64       `json:"created_time,omitempty"`
	Settings        JobSettings `json:"settings"`
}

// StatementState values reported by the statement execution API.
const (
	StatementPending   = "PENDING"
	StatementRunning   = "RUNNING"
	StatementSucceeded = "SUCCEEDED"
	StatementFailed    = "FAILED"
	StatementCanceled  = "CANCELED"
	StatementClosed    = "CLOSED"
)

// StatementError describes a failed statement.
type StatementError struct {
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// StatementStatus is the execution state of a statement.
type StatementStatus struct {
	State string          `json:"state"`
	Error *StatementError `json:"error,omitempty"`
}

// Column describes one result column.
type Column struct {
	Name     string `json:"name"`
	TypeText string `json:"type_text,omitempty"`
	Position int    `json:"position"`
}

// ResultManifest describes the shape of a statement result.
type ResultManifest struct {
	Schema struct {
		Columns []Column `json:"columns"`
	} `json:"schema"`
	TotalRowCount int64 `json:"total_row_count"`
	Truncated     bool  `json:"truncated,omitempty"`
}

// ResultData holds inline JSON_ARRAY rows.
type ResultData struct {
	DataArray [][]*string `json:"data_array,omitempty"`
	RowCount  int64       `json:"row_count,omitempty"`
}

// StatementResponse is returned by ExecuteStatement.
type StatementResponse struct {
	StatementID string          `json:"statement_id"`
	Status      StatementStatus `json:"status"`
	Manifest    *ResultManifest `json:"manifest,omitempty"`
	Result      *ResultData     `json:"result,omitempty"`
}

// Rows converts the inline result into column-name keyed records. NULLs
// become nil.
func (s *StatementResponse) Rows() []map[string]any {
	if s.Manifest == nil || s.Result == nil {
		return nil
	}
	cols := s.Manifest.Schema.Columns
	rows := make([]map[string]any, 0, len(s.Result.DataArray))
	for _, raw := range s.Result.DataArray {
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if i >= len(raw) || raw[i] == nil {
				row[col.Name] = nil
				continue
			}
			row[col.Name] = *raw[i]
		}
		rows = append(rows, row)
	}
	return rows
}
