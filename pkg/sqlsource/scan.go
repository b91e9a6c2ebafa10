package sqlsource

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/relational"
)

func scanTable(rows *sql.Rows) (*relational.Table, error) {
	var schema, name, comment string
	if err := rows.Scan(&schema, &name, &comment); err != nil {
		return nil, errors.Wrap(err, "failed to scan table row")
	}

	id, err := objectName(schema, name)
	if err != nil {
		return nil, err
	}

	return &relational.Table{Name: id, Comment: comment}, nil
}

func scanView(rows *sql.Rows) (*relational.View, error) {
	var (
		schema, name, definition string
		materialized             bool
	)
	if err := rows.Scan(&schema, &name, &definition, &materialized); err != nil {
		return nil, errors.Wrap(err, "failed to scan view row")
	}

	id, err := objectName(schema, name)
	if err != nil {
		return nil, err
	}

	return &relational.View{
		Name:         id,
		Definition:   strings.TrimSpace(definition),
		Materialized: materialized,
	}, nil
}

func scanSequence(rows *sql.Rows) (*relational.Sequence, error) {
	var (
		schema, name, dataType string
		start, increment       int64
		minValue, maxValue     sql.NullInt64
		cycle                  bool
	)
	if err := rows.Scan(&schema, &name, &dataType, &start, &increment, &minValue, &maxValue, &cycle); err != nil {
		return nil, errors.Wrap(err, "failed to scan sequence row")
	}

	id, err := objectName(schema, name)
	if err != nil {
		return nil, err
	}

	seq := &relational.Sequence{
		Name:      id,
		DataType:  dataType,
		Start:     start,
		Increment: increment,
		Cycle:     cycle,
	}
	if minValue.Valid {
		seq.Min = &minValue.Int64
	}
	if maxValue.Valid {
		seq.Max = &maxValue.Int64
	}

	return seq, nil
}

func (s *Source) scanTrigger(rows *sql.Rows) (*relational.Trigger, error) {
	var schema, name, tableSchema, tableName, timing, events, definition string
	if err := rows.Scan(&schema, &name, &tableSchema, &tableName, &timing, &events, &definition); err != nil {
		return nil, errors.Wrap(err, "failed to scan trigger row")
	}

	id, err := objectName(schema, name)
	if err != nil {
		return nil, err
	}

	table, err := objectName(tableSchema, tableName)
	if err != nil {
		return nil, err
	}

	trg := &relational.Trigger{
		Name:       id,
		Table:      table,
		Timing:     timing,
		Definition: strings.TrimSpace(definition),
	}
	if events != "" {
		trg.Events = strings.Split(events, ",")
	}

	if s.dialect.ParseTrigger != nil {
		s.dialect.ParseTrigger(trg)
	}

	return trg, nil
}
