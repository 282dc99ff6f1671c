// Package config defines the JSON-serializable configuration model for a
// transfer job. It is intentionally small and dependency-free: jobs are
// decoded from disk by the standard library, with a light Options helper for
// typed access to free-form option bags.
//
// Example (trimmed):
//
//	{
//	  "job":     "customers_load",
//	  "source":  { "kind": "dbf", "dbf": { "path": "data/customers.dbf" },
//	               "options": { "charset": "cp1250", "skip_deleted": true } },
//	  "storage": { "kind": "postgres",
//	               "db": { "dsn": "postgresql://...", "table": "public.customers",
//	                       "create_table": true, "truncate": false } },
//	  "runtime": { "queue_capacity": 4096, "batch_size": 10000 }
//	}
package config

import "encoding/json"

// Job describes one complete transfer: a source file, a destination, and the
// runtime knobs. It is the top-level object decoded from a job file.
type Job struct {
	// Name identifies the run for logs and metrics labeling.
	Name string `json:"job"`

	// Source describes the input file.
	Source Source `json:"source"`

	// Storage describes where rows are written.
	Storage Storage `json:"storage"`

	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls queueing and batching.
type RuntimeConfig struct {
	// QueueCapacity bounds the rows in flight between reader and writer.
	// Zero means the built-in default.
	QueueCapacity int `json:"queue_capacity"`

	// BatchSize is the number of rows per bulk-load batch. Zero means the
	// built-in default.
	BatchSize int `json:"batch_size"`
}

// Source identifies the input file. Additional kinds can be added over time.
type Source struct {
	// Kind selects the source implementation. Current value: "dbf".
	Kind string `json:"kind"`

	// Dbf carries options for the "dbf" source kind.
	Dbf SourceDbf `json:"dbf"`

	// Options is a free-form map interpreted by the source implementation.
	// For DBF, typical keys are:
	//   charset (string, overrides the file's language driver byte),
	//   skip_deleted (bool)
	Options Options `json:"options"`
}

// UnmarshalJSON implements json.Unmarshaler so a source block without an
// "options" key still decodes with a non-nil, empty Options map.
// encoding/json only invokes Options.UnmarshalJSON for keys present in the
// input, so the absent-key default has to be applied here.
func (s *Source) UnmarshalJSON(b []byte) error {
	type plain Source
	var tmp plain
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	if tmp.Options == nil {
		tmp.Options = Options{}
	}
	*s = Source(tmp)
	return nil
}

// SourceDbf holds configuration for the "dbf" source kind.
type SourceDbf struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path"`
}

// Storage selects the sink used to persist transferred rows.
type Storage struct {
	// Kind selects the storage implementation ("postgres", "mssql",
	// "sqlite").
	Kind string `json:"kind"`

	// DB configures the selected backend.
	DB DBConfig `json:"db"`
}

// DBConfig configures the DB sink, shared across backends.
type DBConfig struct {
	// DSN is the backend connection string (e.g. postgresql://... for pgx,
	// sqlserver://... for go-mssqldb, a file path for sqlite).
	DSN string `json:"dsn"`

	// Table is the destination table name, optionally schema-qualified
	// (e.g. "public.customers").
	Table string `json:"table"`

	// CreateTable derives DDL from the source's field descriptors and
	// executes it before any row flows.
	CreateTable bool `json:"create_table"`

	// Truncate empties the destination table before loading.
	Truncate bool `json:"truncate"`
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing a configuration library. It performs only minimal type
// coercion and returns the provided default when a key is absent or of an
// unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// UnmarshalJSON implements json.Unmarshaler so that an explicit null
// "options" object decodes to a non-nil, empty Options map; the absent-key
// case is handled by Source.UnmarshalJSON. Together they remove the need to
// nil-check Options at call sites.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
