package config

import "testing"

func validJob() Job {
	return Job{
		Name: "customers_load",
		Source: Source{
			Kind: "dbf",
			Dbf:  SourceDbf{Path: "data/customers.dbf"},
		},
		Storage: Storage{
			Kind: "postgres",
			DB: DBConfig{
				DSN:         "postgresql://u:p@h:5432/db",
				Table:       "public.customers",
				CreateTable: true,
			},
		},
		Runtime: RuntimeConfig{QueueCapacity: 1024, BatchSize: 5000},
	}
}

func countSeverity(issues []Issue, sev IssueSeverity) int {
	n := 0
	for _, iss := range issues {
		if iss.Severity == sev {
			n++
		}
	}
	return n
}

func findPath(issues []Issue, path string) *Issue {
	for i := range issues {
		if issues[i].Path == path {
			return &issues[i]
		}
	}
	return nil
}

func TestValidateJob_CleanConfig(t *testing.T) {
	t.Parallel()

	issues := ValidateJob(validJob())
	if n := countSeverity(issues, SeverityError); n != 0 {
		t.Fatalf("valid job produced %d errors: %v", n, issues)
	}
}

func TestValidateJob_MissingRequiredFields(t *testing.T) {
	t.Parallel()

	j := validJob()
	j.Name = ""
	j.Source.Dbf.Path = "  "
	j.Storage.DB.DSN = ""
	j.Storage.DB.Table = ""

	issues := ValidateJob(j)
	for _, path := range []string{"job", "source.dbf.path", "storage.db.dsn", "storage.db.table"} {
		iss := findPath(issues, path)
		if iss == nil {
			t.Errorf("no issue reported at %s", path)
			continue
		}
		if iss.Severity != SeverityError {
			t.Errorf("issue at %s has severity %s, want error", path, iss.Severity)
		}
	}
}

func TestValidateJob_UnknownKindsWarn(t *testing.T) {
	t.Parallel()

	j := validJob()
	j.Source.Kind = "parquet"
	j.Storage.Kind = "oracle"

	issues := ValidateJob(j)
	if iss := findPath(issues, "source.kind"); iss == nil || iss.Severity != SeverityWarning {
		t.Errorf("unknown source kind: got %v, want warning", iss)
	}
	if iss := findPath(issues, "storage.kind"); iss == nil || iss.Severity != SeverityWarning {
		t.Errorf("unknown storage kind: got %v, want warning", iss)
	}
	if n := countSeverity(issues, SeverityError); n != 0 {
		t.Errorf("unknown kinds should not be errors, got %v", issues)
	}
}

func TestValidateJob_TruncateWithoutCreateWarns(t *testing.T) {
	t.Parallel()

	j := validJob()
	j.Storage.DB.CreateTable = false
	j.Storage.DB.Truncate = true

	issues := ValidateJob(j)
	iss := findPath(issues, "storage.db.truncate")
	if iss == nil || iss.Severity != SeverityWarning {
		t.Fatalf("truncate without create_table: got %v, want warning", iss)
	}
}

func TestValidateJob_NegativeRuntime(t *testing.T) {
	t.Parallel()

	j := validJob()
	j.Runtime.QueueCapacity = -1
	j.Runtime.BatchSize = -5

	issues := ValidateJob(j)
	for _, path := range []string{"runtime.queue_capacity", "runtime.batch_size"} {
		iss := findPath(issues, path)
		if iss == nil || iss.Severity != SeverityError {
			t.Errorf("issue at %s = %v, want error", path, iss)
		}
	}
}

func TestIssue_Error(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "storage.db.dsn", Message: "must not be empty"}
	want := "error at storage.db.dsn: must not be empty"
	if got := iss.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
