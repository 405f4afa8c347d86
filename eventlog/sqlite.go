package eventlog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteConfig configures reading an event log from a SQLite database.
// Many process logs start life in an application database rather than an
// exported CSV; this reads them in place.
type SQLiteConfig struct {
	Table            string   // Table (or view) holding one event per row (required)
	CaseIDColumn     string   // Column for case ID (required)
	ActivityColumn   string   // Column for activity (required)
	TimestampColumn  string   // Column for timestamp (required)
	ResourceColumn   string   // Column for resource (optional)
	LifecycleColumn  string   // Column for lifecycle (optional)
	TimestampFormats []string // Formats to try for TEXT timestamps (optional)
}

// DefaultSQLiteConfig returns a configuration matching DefaultCSVConfig's
// column naming.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		Table:           "events",
		CaseIDColumn:    "case_id",
		ActivityColumn:  "activity",
		TimestampColumn: "timestamp",
		ResourceColumn:  "resource",
		LifecycleColumn: "lifecycle",
		TimestampFormats: []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
			"2006-01-02",
		},
	}
}

// ParseSQLite reads an event log from a SQLite database file.
func ParseSQLite(filename string, config SQLiteConfig) (*EventLog, error) {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return ParseSQLiteDB(db, config)
}

// ParseSQLiteDB reads an event log from an already-open database handle.
func ParseSQLiteDB(db *sql.DB, config SQLiteConfig) (*EventLog, error) {
	if config.Table == "" {
		return nil, fmt.Errorf("Table is required")
	}
	if config.CaseIDColumn == "" {
		return nil, fmt.Errorf("CaseIDColumn is required")
	}
	if config.ActivityColumn == "" {
		return nil, fmt.Errorf("ActivityColumn is required")
	}
	if config.TimestampColumn == "" {
		return nil, fmt.Errorf("TimestampColumn is required")
	}
	for _, ident := range []string{config.Table, config.CaseIDColumn,
		config.ActivityColumn, config.TimestampColumn,
		config.ResourceColumn, config.LifecycleColumn} {
		if err := validateIdentifier(ident); err != nil {
			return nil, err
		}
	}

	columns := []string{config.CaseIDColumn, config.ActivityColumn, config.TimestampColumn}
	resourceIdx, lifecycleIdx := -1, -1
	if config.ResourceColumn != "" {
		resourceIdx = len(columns)
		columns = append(columns, config.ResourceColumn)
	}
	if config.LifecycleColumn != "" {
		lifecycleIdx = len(columns)
		columns = append(columns, config.LifecycleColumn)
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s, %s",
		strings.Join(columns, ", "), config.Table,
		config.CaseIDColumn, config.TimestampColumn)

	rows, err := db.Query(query)
	if err != nil {
		// Optional columns may simply not exist in this table; retry with
		// just the required three before giving up.
		if resourceIdx >= 0 || lifecycleIdx >= 0 {
			stripped := config
			stripped.ResourceColumn = ""
			stripped.LifecycleColumn = ""
			return ParseSQLiteDB(db, stripped)
		}
		return nil, fmt.Errorf("querying %s: %w", config.Table, err)
	}
	defer rows.Close()

	log := NewEventLog()
	rowNum := 0
	for rows.Next() {
		rowNum++
		values := make([]sql.NullString, len(columns))
		scan := make([]interface{}, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		caseID := strings.TrimSpace(values[0].String)
		activity := strings.TrimSpace(values[1].String)
		if caseID == "" {
			return nil, fmt.Errorf("row %d: empty case ID", rowNum)
		}
		if activity == "" {
			return nil, fmt.Errorf("row %d: empty activity", rowNum)
		}

		timestamp, err := parseTimestamp(strings.TrimSpace(values[2].String), config.TimestampFormats)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid timestamp '%s': %w", rowNum, values[2].String, err)
		}

		event := Event{
			CaseID:     caseID,
			Activity:   activity,
			Timestamp:  timestamp,
			Attributes: make(map[string]interface{}),
		}
		if resourceIdx >= 0 && values[resourceIdx].Valid {
			event.Resource = strings.TrimSpace(values[resourceIdx].String)
		}
		if lifecycleIdx >= 0 && values[lifecycleIdx].Valid {
			event.Lifecycle = strings.TrimSpace(values[lifecycleIdx].String)
		}
		log.AddEvent(event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	if log.NumEvents() == 0 {
		return nil, fmt.Errorf("table %s contains no events", config.Table)
	}

	log.SortTraces()
	return log, nil
}

// validateIdentifier rejects table/column names that cannot be safely
// interpolated into the query text (database/sql placeholders cannot bind
// identifiers).
func validateIdentifier(s string) error {
	if s == "" {
		return nil
	}
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			continue
		}
		return fmt.Errorf("invalid identifier %q", s)
	}
	return nil
}
