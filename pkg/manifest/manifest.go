package manifest

// SummaryManifest represents the structure of the summary YAML file.
// It provides a lightweight overview of one aggregation run: which inputs
// became shards, and what each group reduced to.
type SummaryManifest struct {
	GeneratedAt string         `yaml:"generated_at" json:"generated_at"`
	RunID       int64          `yaml:"run_id,omitempty" json:"run_id,omitempty"`
	MaxSize     int            `yaml:"max_size" json:"max_size"`
	Truncate    bool           `yaml:"truncate" json:"truncate"`
	TotalInputs int            `yaml:"total_inputs" json:"total_inputs"`
	Successful  int            `yaml:"successful" json:"successful"`
	Failed      int            `yaml:"failed" json:"failed"`
	Groups      []GroupSummary `yaml:"groups" json:"groups"`
	Inputs      []InputSummary `yaml:"inputs" json:"inputs"`
}

// GroupSummary describes the aggregate of one grouping key.
type GroupSummary struct {
	Group        string   `yaml:"group" json:"group"`
	Status       string   `yaml:"status" json:"status"` // "success" or "error"
	ShardCount   int      `yaml:"shard_count" json:"shard_count"`
	KeyCount     int      `yaml:"key_count,omitempty" json:"key_count,omitempty"`
	Total        int64    `yaml:"total,omitempty" json:"total,omitempty"`
	AggregateID  int64    `yaml:"aggregate_id,omitempty" json:"aggregate_id,omitempty"`
	ErrorMessage string   `yaml:"error_message,omitempty" json:"error_message,omitempty"`
	TopKeywords  []string `yaml:"top_keywords,omitempty" json:"top_keywords,omitempty"`
}

// InputSummary describes how a single input was turned into a shard.
type InputSummary struct {
	Source       string `yaml:"source" json:"source"`
	Status       string `yaml:"status" json:"status"` // "success" or "error"
	Group        string `yaml:"group,omitempty" json:"group,omitempty"`
	KeyCount     int    `yaml:"key_count,omitempty" json:"key_count,omitempty"`
	ErrorType    string `yaml:"error_type,omitempty" json:"error_type,omitempty"`
	ErrorMessage string `yaml:"error_message,omitempty" json:"error_message,omitempty"`
}
