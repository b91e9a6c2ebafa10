package ddl

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

var (
	ddlLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `--[^\r\n]*`},
		{Name: "MultilineComment", Pattern: `/\*[^*]*\*+([^/*][^*]*\*+)*/`},
		{Name: "String", Pattern: `'(?:[^']|'')*'`},
		{Name: "DollarString", Pattern: `\$\$(?s:.*?)\$\$`},
		{Name: "QuotedIdent", Pattern: "\"(?:[^\"]|\"\")*\"|`[^`]*`"},
		{Name: "Number", Pattern: `\d+(\.\d*)?`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$]*`},
		{Name: "Operator", Pattern: `::|<>|!=|<=|>=|\|\|`},
		{Name: "Punct", Pattern: `[^\sa-zA-Z0-9_]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	parser = participle.MustBuild[File](
		participle.Lexer(ddlLexer),
		participle.Elide("Comment", "MultilineComment", "Whitespace"),
		participle.CaseInsensitive("Ident"),
		participle.Map(unquote, "String", "QuotedIdent"),
		participle.UseLookahead(3),
	)
)

// unquote strips SQL quoting. Doubled quote characters inside the literal are collapsed.
func unquote(t lexer.Token) (lexer.Token, error) {
	if len(t.Value) < 2 {
		return t, nil
	}

	quote := t.Value[:1]
	t.Value = strings.ReplaceAll(t.Value[1:len(t.Value)-1], quote+quote, quote)
	return t, nil
}

type (
	// File is a sequence of statements separated by semicolons.
	File struct {
		Statements []*Statement `parser:"';'* (@@ ';'*)*"`
	}

	// Statement is one top-level statement. Statements that do not define an object are
	// kept as Other so files with indexes, grants or inserts still load.
	Statement struct {
		Pos    lexer.Position
		Create *CreateStmt  `parser:"  @@"`
		Note   *CommentStmt `parser:"| @@"`
		Other  []*BodyItem  `parser:"| @@+"`
		EndPos lexer.Position
	}

	// CreateStmt is CREATE [OR REPLACE] followed by an object definition.
	CreateStmt struct {
		Create    string        `parser:"'CREATE'"`
		OrReplace bool          `parser:"@('OR' 'REPLACE')?"`
		Table     *TableStmt    `parser:"(  @@"`
		View      *ViewStmt     `parser:" | @@"`
		Sequence  *SequenceStmt `parser:" | @@"`
		Synonym   *SynonymStmt  `parser:" | @@"`
		Trigger   *TriggerStmt  `parser:" | @@ )"`
	}

	// CommentStmt is COMMENT ON {TABLE|VIEW|COLUMN|...} name IS 'text'.
	CommentStmt struct {
		Comment string `parser:"'COMMENT' 'ON'"`
		Kind    string `parser:"@('TABLE' | 'VIEW' | 'COLUMN' | 'SEQUENCE' | 'TRIGGER' | 'MATERIALIZED' 'VIEW')"`
		Target  *Name  `parser:"@@"`
		Text    string `parser:"'IS' @String"`
	}

	// Name is a dotted, possibly quoted, object name.
	Name struct {
		Parts []string `parser:"@(Ident | QuotedIdent) ('.' @(Ident | QuotedIdent))*"`
	}

	// TableStmt is the remainder of CREATE TABLE.
	TableStmt struct {
		Temporary   bool            `parser:"@('TEMP' | 'TEMPORARY')?"`
		Keyword     string          `parser:"'TABLE'"`
		IfNotExists bool            `parser:"@('IF' 'NOT' 'EXISTS')?"`
		Name        *Name           `parser:"@@"`
		OnCluster   *string         `parser:"('ON' 'CLUSTER' @(Ident | QuotedIdent | String))?"`
		Elements    []*TableElement `parser:"('(' @@ (',' @@)* ')')?"`
		Options     []*TableOption  `parser:"@@*"`
	}

	// TableElement is a column or a table constraint.
	TableElement struct {
		Constraint *TableConstraint `parser:"  @@"`
		Column     *ColumnDef       `parser:"| @@"`
	}

	// TableConstraint is a named or unnamed table-level constraint. Only primary keys are
	// interpreted.
	TableConstraint struct {
		Name       *string     `parser:"('CONSTRAINT' @(Ident | QuotedIdent))?"`
		PrimaryKey []string    `parser:"(  'PRIMARY' 'KEY' '(' @(Ident | QuotedIdent) (('ASC' | 'DESC')? ',' @(Ident | QuotedIdent))* ('ASC' | 'DESC')? ')'"`
		Other      []*Fragment `parser:" | ('UNIQUE' | 'FOREIGN' | 'CHECK' | 'EXCLUDE') @@* )"`
	}

	// ColumnDef is a column name, an optional type and any column constraints.
	ColumnDef struct {
		Name        string              `parser:"@(Ident | QuotedIdent)"`
		Type        *TypeName           `parser:"@@?"`
		Constraints []*ColumnConstraint `parser:"@@*"`
	}

	// TypeName is captured verbatim, e.g. "varchar(255)" or "timestamp with time zone".
	TypeName struct {
		Pos    lexer.Position
		Parts  []*TypePart `parser:"@@+"`
		EndPos lexer.Position
	}

	TypePart struct {
		Group *Group `parser:"  @@"`
		Word  string `parser:"| @!('NOT' | 'NULL' | 'DEFAULT' | 'PRIMARY' | 'UNIQUE' | 'CHECK' | 'REFERENCES' | 'COMMENT' | 'COLLATE' | 'CONSTRAINT' | 'GENERATED' | 'AUTOINCREMENT' | 'AUTO_INCREMENT' | 'IDENTITY' | 'CODEC' | 'MATERIALIZED' | 'ALIAS' | 'TTL' | '(' | ')' | ',' | ';')"`
	}

	// ColumnConstraint is one column attribute. Attributes other than nullability, keys,
	// defaults and comments are accepted and ignored.
	ColumnConstraint struct {
		Name       *string   `parser:"('CONSTRAINT' @(Ident | QuotedIdent))?"`
		NotNull    bool      `parser:"(  @('NOT' 'NULL')"`
		Null       bool      `parser:" | @'NULL'"`
		PrimaryKey bool      `parser:" | @('PRIMARY' 'KEY')"`
		Default    *Expr     `parser:" | 'DEFAULT' @@"`
		Comment    *string   `parser:" | 'COMMENT' @String"`
		Other      *Fragment `parser:" | @@ )"`
	}

	// Expr is an expression captured verbatim. It ends before the next column attribute.
	Expr struct {
		Pos    lexer.Position
		Head   *Fragment   `parser:"@@"`
		Tail   []*TypePart `parser:"@@*"`
		EndPos lexer.Position
	}

	// Fragment is a single token or a parenthesized group, never a bare comma.
	Fragment struct {
		Group *Group `parser:"  @@"`
		Token string `parser:"| @!('(' | ')' | ',' | ';')"`
	}

	// Group is a balanced parenthesized token sequence.
	Group struct {
		Open  string      `parser:"@'('"`
		Items []*Fragment `parser:"(@@ | ',')*"`
		Close string      `parser:"@')'"`
	}

	// TableOption is anything after the column list, e.g. ENGINE = MergeTree or WITHOUT ROWID.
	TableOption struct {
		Engine     *string   `parser:"  'ENGINE' '='? @(Ident | QuotedIdent)"`
		Comment    *string   `parser:"| 'COMMENT' '='? @String"`
		PrimaryKey []string  `parser:"| 'PRIMARY' 'KEY' ('(' @(Ident | QuotedIdent) (',' @(Ident | QuotedIdent))* ')' | @(Ident | QuotedIdent))"`
		Other      *BodyItem `parser:"| @@"`
	}

	// ViewStmt is the remainder of CREATE VIEW.
	ViewStmt struct {
		Temporary    bool        `parser:"@('TEMP' | 'TEMPORARY')?"`
		Materialized bool        `parser:"@'MATERIALIZED'?"`
		Keyword      string      `parser:"'VIEW'"`
		IfNotExists  bool        `parser:"@('IF' 'NOT' 'EXISTS')?"`
		Name         *Name       `parser:"@@"`
		Columns      []string    `parser:"('(' @(Ident | QuotedIdent) (',' @(Ident | QuotedIdent))* ')')?"`
		Options      []*ViewItem `parser:"@@*"`
		Query        *Query      `parser:"'AS' @@"`
	}

	ViewItem struct {
		Group *Group `parser:"  @@"`
		Token string `parser:"| @!('AS' | '(' | ')' | ';')"`
	}

	// Query is the view body, captured verbatim up to the terminating semicolon.
	Query struct {
		Pos    lexer.Position
		Items  []*BodyItem `parser:"@@+"`
		EndPos lexer.Position
	}

	// SequenceStmt is the remainder of CREATE SEQUENCE.
	SequenceStmt struct {
		Temporary   bool              `parser:"@('TEMP' | 'TEMPORARY')?"`
		Keyword     string            `parser:"'SEQUENCE'"`
		IfNotExists bool              `parser:"@('IF' 'NOT' 'EXISTS')?"`
		Name        *Name             `parser:"@@"`
		Options     []*SequenceOption `parser:"@@*"`
	}

	SequenceOption struct {
		DataType  *string   `parser:"  'AS' @Ident"`
		Start     *string   `parser:"| 'START' 'WITH'? @('-'? Number)"`
		Increment *string   `parser:"| 'INCREMENT' 'BY'? @('-'? Number)"`
		MinValue  *string   `parser:"| 'MINVALUE' @('-'? Number)"`
		MaxValue  *string   `parser:"| 'MAXVALUE' @('-'? Number)"`
		NoMin     bool      `parser:"| @('NO' 'MINVALUE' | 'NOMINVALUE')"`
		NoMax     bool      `parser:"| @('NO' 'MAXVALUE' | 'NOMAXVALUE')"`
		NoCycle   bool      `parser:"| @('NO' 'CYCLE' | 'NOCYCLE')"`
		Cycle     bool      `parser:"| @'CYCLE'"`
		Other     *BodyItem `parser:"| @@"`
	}

	// SynonymStmt is the remainder of CREATE [PUBLIC] SYNONYM.
	SynonymStmt struct {
		Public  bool   `parser:"@'PUBLIC'?"`
		Keyword string `parser:"'SYNONYM'"`
		Name    *Name  `parser:"@@"`
		Target  *Name  `parser:"'FOR' @@"`
	}

	// TriggerStmt is the remainder of CREATE TRIGGER. Timing and events may come before or
	// after the ON clause.
	TriggerStmt struct {
		Temporary   bool           `parser:"@('TEMP' | 'TEMPORARY')?"`
		Keyword     string         `parser:"'TRIGGER'"`
		IfNotExists bool           `parser:"@('IF' 'NOT' 'EXISTS')?"`
		Name        *Name          `parser:"@@"`
		Before      *TriggerTiming `parser:"@@?"`
		Table       *Name          `parser:"'ON' @@"`
		After       *TriggerTiming `parser:"@@?"`
		Body        []*BodyItem    `parser:"@@*"`
	}

	TriggerTiming struct {
		Instead bool            `parser:"(  @('INSTEAD' 'OF')"`
		Timing  string          `parser:" | @('BEFORE' | 'AFTER' | 'FOR') )?"`
		Events  []*TriggerEvent `parser:"@@ (('OR' | ',') @@)*"`
	}

	TriggerEvent struct {
		Kind    string   `parser:"@('INSERT' | 'UPDATE' | 'DELETE' | 'TRUNCATE')"`
		Columns []string `parser:"('OF' @(Ident | QuotedIdent) (',' @(Ident | QuotedIdent))*)?"`
	}

	// BodyItem is one token of a statement tail. BEGIN ... END and CASE ... END blocks are
	// kept together so their semicolons do not end the statement.
	BodyItem struct {
		Block *Block `parser:"  @@"`
		Group *Group `parser:"| @@"`
		Token string `parser:"| @!(';' | '(' | ')')"`
	}

	// Block is BEGIN ... END or CASE ... END. A BEGIN that starts a transaction is not a
	// block.
	Block struct {
		Begin string       `parser:"@('BEGIN' | 'CASE')"`
		Lead  string       `parser:"@!(';' | 'TRANSACTION' | 'WORK' | 'END')"`
		Items []*BlockItem `parser:"@@*"`
		End   string       `parser:"@'END'"`
	}

	BlockItem struct {
		Nested *Block `parser:"  @@"`
		Token  string `parser:"| @!'END'"`
	}
)

// String returns the dotted name without quotes.
func (n *Name) String() string {
	return strings.Join(n.Parts, ".")
}

// Parse parses DDL text. filename is only used in error positions.
func Parse(filename, sql string) (*File, error) {
	file, err := parser.ParseString(filename, sql)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse DDL")
	}

	return file, nil
}
