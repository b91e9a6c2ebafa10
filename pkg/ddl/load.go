package ddl

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"github.com/pseudomuto/schemalens/pkg/relational"
	"github.com/pseudomuto/schemalens/pkg/source"
	"go.uber.org/zap"
)

const (
	// Dialect is reported in the identity of loaded sources.
	Dialect = "ddl"

	// DefaultSchema qualifies unqualified names unless WithDefaultSchema is given.
	DefaultSchema = "public"
)

// ErrDuplicateObject is returned when an object is created twice without OR REPLACE or
// IF NOT EXISTS.
var ErrDuplicateObject = errors.New("object already defined")

type (
	// Option configures loading.
	Option func(*options)

	options struct {
		name     string
		schema   string
		comparer identifier.Comparer
		log      *zap.Logger
	}

	objectKey struct {
		kind relational.Kind
		key  identifier.Key
	}

	loader struct {
		options

		src     *source.Static
		defined map[objectKey]relational.Object
	}
)

// WithName sets the source name. Defaults to the file name, or "ddl" for readers.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithDefaultSchema sets the schema for unqualified names.
func WithDefaultSchema(schema string) Option {
	return func(o *options) {
		if schema != "" {
			o.schema = schema
		}
	}
}

// WithComparer sets the comparer that decides when two names collide. Defaults to
// identifier.OrdinalIgnoreCase.
func WithComparer(c identifier.Comparer) Option {
	return func(o *options) { o.comparer = c }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// Load parses DDL from r into an in-memory source.
//
// Example:
//
//	src, err := ddl.Load(strings.NewReader(`
//		CREATE TABLE users (id bigint PRIMARY KEY, email text NOT NULL);
//		CREATE SYNONYM people FOR users;
//	`))
//	if err != nil {
//		return err
//	}
//
//	db, err := relational.NewCached(src)
func Load(r io.Reader, opts ...Option) (*source.Static, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read DDL")
	}

	l := newLoader(Dialect, opts)
	if err := l.load("", string(data)); err != nil {
		return nil, err
	}

	return l.src, nil
}

// LoadFile loads a DDL file. When path is a directory every *.sql file in it is loaded in
// lexical order into a single source.
func LoadFile(path string, opts ...Option) (*source.Static, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}

	files := []string{path}
	if info.IsDir() {
		if files, err = filepath.Glob(filepath.Join(path, "*.sql")); err != nil {
			return nil, errors.Wrapf(err, "failed to list %s", path)
		}
		sort.Strings(files)
	}

	l := newLoader(filepath.Base(path), opts)
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", file)
		}

		if err := l.load(file, string(data)); err != nil {
			return nil, err
		}
	}

	return l.src, nil
}

func newLoader(name string, opts []Option) *loader {
	o := options{
		name:     name,
		schema:   DefaultSchema,
		comparer: identifier.OrdinalIgnoreCase,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	o.log = o.log.With(zap.String("source", o.name))

	return &loader{
		options: o,
		src: source.New(relational.Identity{
			Dialect:       Dialect,
			DefaultSchema: o.schema,
			Name:          o.name,
			Comparer:      o.comparer,
		}),
		defined: make(map[objectKey]relational.Object),
	}
}

func (l *loader) load(filename, sql string) error {
	file, err := Parse(filename, sql)
	if err != nil {
		return err
	}

	for _, stmt := range file.Statements {
		var err error
		switch {
		case stmt.Create != nil:
			err = l.create(sql, stmt)
		case stmt.Note != nil:
			err = l.comment(stmt.Note)
		default:
			l.log.Debug("skipping statement",
				zap.String("file", filename),
				zap.Int("line", stmt.Pos.Line),
				zap.String("statement", text(sql, stmt.Pos, stmt.EndPos)),
			)
		}

		if err != nil {
			return errors.Wrapf(err, "%s:%d", filename, stmt.Pos.Line)
		}
	}

	return nil
}

func (l *loader) create(sql string, stmt *Statement) error {
	c := stmt.Create

	var (
		obj         relational.Object
		ifNotExists bool
		err         error
	)

	switch {
	case c.Table != nil:
		obj, err = l.table(sql, c.Table)
		ifNotExists = c.Table.IfNotExists
	case c.View != nil:
		obj, err = l.view(sql, c.View)
		ifNotExists = c.View.IfNotExists
	case c.Sequence != nil:
		obj, err = l.sequence(c.Sequence)
		ifNotExists = c.Sequence.IfNotExists
	case c.Synonym != nil:
		obj, err = l.synonym(c.Synonym)
	case c.Trigger != nil:
		obj, err = l.trigger(text(sql, stmt.Pos, stmt.EndPos), c.Trigger)
		ifNotExists = c.Trigger.IfNotExists
	}
	if err != nil {
		return err
	}

	k := objectKey{kind: obj.Kind(), key: l.comparer.Key(obj.ObjectName())}
	if _, ok := l.defined[k]; ok {
		switch {
		case ifNotExists:
			l.log.Debug("keeping existing object", zap.Stringer("kind", obj.Kind()), zap.Stringer("name", obj.ObjectName()))
			return nil
		case !c.OrReplace:
			return errors.Wrapf(ErrDuplicateObject, "%s %s", obj.Kind(), obj.ObjectName())
		}
	}

	l.defined[k] = obj
	return l.src.Add(obj)
}

func (l *loader) table(sql string, stmt *TableStmt) (*relational.Table, error) {
	name, err := l.name(stmt.Name)
	if err != nil {
		return nil, err
	}

	t := &relational.Table{Name: name}
	for _, el := range stmt.Elements {
		switch {
		case el.Column != nil:
			col, pk := column(sql, el.Column)
			t.Columns = append(t.Columns, col)
			if pk {
				t.PrimaryKey = append(t.PrimaryKey, col.Name)
			}
		case el.Constraint != nil && len(el.Constraint.PrimaryKey) > 0:
			t.PrimaryKey = el.Constraint.PrimaryKey
		}
	}

	for _, opt := range stmt.Options {
		switch {
		case opt.Engine != nil:
			t.Engine = *opt.Engine
		case opt.Comment != nil:
			t.Comment = *opt.Comment
		case len(opt.PrimaryKey) > 0:
			t.PrimaryKey = opt.PrimaryKey
		}
	}

	for i, col := range t.Columns {
		for _, key := range t.PrimaryKey {
			if col.Name == key {
				t.Columns[i].Nullable = false
			}
		}
	}

	return t, nil
}

// column converts a column definition and reports whether it is declared PRIMARY KEY.
func column(sql string, def *ColumnDef) (relational.Column, bool) {
	col := relational.Column{Name: def.Name, Nullable: true}
	if def.Type != nil {
		col.Type = text(sql, def.Type.Pos, def.Type.EndPos)
	}

	var pk bool
	for _, c := range def.Constraints {
		switch {
		case c.NotNull:
			col.Nullable = false
		case c.Null:
			col.Nullable = true
		case c.PrimaryKey:
			pk = true
		case c.Default != nil:
			value := text(sql, c.Default.Pos, c.Default.EndPos)
			col.Default = &value
		case c.Comment != nil:
			col.Comment = *c.Comment
		}
	}

	return col, pk
}

func (l *loader) view(sql string, stmt *ViewStmt) (*relational.View, error) {
	name, err := l.name(stmt.Name)
	if err != nil {
		return nil, err
	}

	v := &relational.View{
		Name:         name,
		Definition:   text(sql, stmt.Query.Pos, stmt.Query.EndPos),
		Materialized: stmt.Materialized,
	}
	for _, col := range stmt.Columns {
		v.Columns = append(v.Columns, relational.Column{Name: col, Nullable: true})
	}

	return v, nil
}

func (l *loader) sequence(stmt *SequenceStmt) (*relational.Sequence, error) {
	name, err := l.name(stmt.Name)
	if err != nil {
		return nil, err
	}

	seq := &relational.Sequence{Name: name, DataType: "bigint", Increment: 1}

	var start *int64
	for _, opt := range stmt.Options {
		var err error
		switch {
		case opt.DataType != nil:
			seq.DataType = strings.ToLower(*opt.DataType)
		case opt.Start != nil:
			start, err = parseInt(*opt.Start)
		case opt.Increment != nil:
			var n *int64
			if n, err = parseInt(*opt.Increment); err == nil {
				seq.Increment = *n
			}
		case opt.MinValue != nil:
			seq.Min, err = parseInt(*opt.MinValue)
		case opt.MaxValue != nil:
			seq.Max, err = parseInt(*opt.MaxValue)
		case opt.NoMin:
			seq.Min = nil
		case opt.NoMax:
			seq.Max = nil
		case opt.Cycle:
			seq.Cycle = true
		case opt.NoCycle:
			seq.Cycle = false
		}

		if err != nil {
			return nil, errors.Wrapf(err, "invalid sequence %s", name)
		}
	}

	if seq.Increment == 0 {
		return nil, errors.Errorf("sequence %s increment must not be zero", name)
	}

	// Ascending sequences start at their minimum, descending ones at their maximum.
	switch {
	case start != nil:
		seq.Start = *start
	case seq.Increment > 0 && seq.Min != nil:
		seq.Start = *seq.Min
	case seq.Increment > 0:
		seq.Start = 1
	case seq.Max != nil:
		seq.Start = *seq.Max
	default:
		seq.Start = -1
	}

	return seq, nil
}

func (l *loader) synonym(stmt *SynonymStmt) (*relational.Synonym, error) {
	name, err := l.name(stmt.Name)
	if err != nil {
		return nil, err
	}

	target, err := parts(stmt.Target.Parts)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid synonym target %s", stmt.Target)
	}

	return &relational.Synonym{Name: name, Target: target}, nil
}

func (l *loader) trigger(definition string, stmt *TriggerStmt) (*relational.Trigger, error) {
	name, err := l.name(stmt.Name)
	if err != nil {
		return nil, err
	}

	table, err := l.name(stmt.Table)
	if err != nil {
		return nil, err
	}

	trg := &relational.Trigger{Name: name, Table: table, Definition: definition}

	timing := stmt.Before
	if timing == nil {
		timing = stmt.After
	}

	if timing != nil {
		switch {
		case timing.Instead:
			trg.Timing = "INSTEAD OF"
		case strings.EqualFold(timing.Timing, "FOR"):
			trg.Timing = "AFTER"
		default:
			trg.Timing = strings.ToUpper(timing.Timing)
		}

		for _, ev := range timing.Events {
			trg.Events = append(trg.Events, strings.ToUpper(ev.Kind))
		}
	}

	return trg, nil
}

// comment applies COMMENT ON to a table or a table column defined earlier. Comments on
// anything else, or on objects defined elsewhere, are ignored.
func (l *loader) comment(stmt *CommentStmt) error {
	kind := strings.ToUpper(stmt.Kind)

	target := stmt.Target.Parts
	if kind == "COLUMN" {
		if len(target) < 2 {
			return errors.Errorf("column comment target %s has no table", stmt.Target)
		}
		target = target[:len(target)-1]
	}

	name, err := parts(target)
	if err != nil {
		return err
	}
	name = identifier.Qualify(name, l.schema)

	tbl, ok := l.defined[objectKey{kind: relational.KindTable, key: l.comparer.Key(name)}].(*relational.Table)
	if !ok {
		l.log.Debug("ignoring comment", zap.String("on", kind), zap.Stringer("target", stmt.Target))
		return nil
	}

	switch kind {
	case "TABLE":
		tbl.Comment = stmt.Text
	case "COLUMN":
		column := identifier.Local(stmt.Target.Parts[len(stmt.Target.Parts)-1])
		for i := range tbl.Columns {
			if l.comparer.Equal(identifier.Local(tbl.Columns[i].Name), column) {
				tbl.Columns[i].Comment = stmt.Text
			}
		}
	}

	return nil
}

func (l *loader) name(n *Name) (identifier.Identifier, error) {
	id, err := parts(n.Parts)
	if err != nil {
		return identifier.Identifier{}, errors.Wrapf(err, "invalid name %s", n)
	}

	return identifier.Qualify(id, l.schema), nil
}

// parts builds an identifier from up to four dotted name parts.
func parts(p []string) (identifier.Identifier, error) {
	if len(p) > 4 {
		return identifier.Identifier{}, errors.Wrapf(identifier.ErrInvalidName, "%q has too many parts", strings.Join(p, "."))
	}

	full := make([]string, 4-len(p), 4)
	full = append(full, p...)
	return identifier.New(full[0], full[1], full[2], full[3])
}

func parseInt(s string) (*int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid integer %q", s)
	}

	return &n, nil
}

// text returns the source between two positions with runs of whitespace collapsed.
func text(sql string, start, end lexer.Position) string {
	if end.Offset < start.Offset || end.Offset > len(sql) {
		return ""
	}

	return strings.Join(strings.Fields(sql[start.Offset:end.Offset]), " ")
}
