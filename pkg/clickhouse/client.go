package clickhouse

import (
	"context"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"github.com/pseudomuto/schemalens/pkg/relational"
	"go.uber.org/zap"
)

// Dialect is the dialect reported in the identity of every Client.
const Dialect = "clickhouse"

const defaultDatabase = "default"

type (
	// Client is a relational.Source backed by a ClickHouse connection.
	Client struct {
		conn     querier
		options  ClientOptions
		database string
		version  *VersionInfo
		log      *zap.Logger
	}

	// ClientOptions configures a Client.
	ClientOptions struct {
		TLSSettings

		// Name is the display name of the source. Defaults to "clickhouse".
		Name string

		// Database qualifies names without a database. Defaults to the database in the DSN,
		// or "default".
		Database string

		// Logger defaults to a no-op logger.
		Logger *zap.Logger
	}

	// TLSSettings holds PEM files for TLS. TLS is enabled when CertFile or CAFile is set.
	TLSSettings struct {
		CertFile string
		KeyFile  string
		CAFile   string
	}

	// querier is the subset of driver.Conn used by the client.
	querier interface {
		Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
		Close() error
	}
)

// NewClient connects to the ClickHouse server at dsn. The DSN is either a bare "host:port"
// or a full clickhouse:// URL.
func NewClient(ctx context.Context, dsn string) (*Client, error) {
	return NewClientWithOptions(ctx, dsn, ClientOptions{})
}

// NewClientWithOptions connects to the ClickHouse server at dsn and verifies the
// connection by reading the server version.
func NewClientWithOptions(ctx context.Context, dsn string, opts ClientOptions) (*Client, error) {
	chOpts, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	if opts.Enabled() {
		cfg, err := opts.TLSConfig()
		if err != nil {
			return nil, err
		}
		chOpts.TLS = cfg
	}

	if opts.Database == "" {
		opts.Database = chOpts.Auth.Database
	}

	conn, err := clickhouse.Open(chOpts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to ClickHouse")
	}

	c := newClient(conn, opts)

	version, err := c.GetVersion(ctx)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	c.version = version
	c.log.Debug("connected", zap.Stringer("version", version), zap.String("database", c.database))
	return c, nil
}

func newClient(conn querier, opts ClientOptions) *Client {
	if opts.Name == "" {
		opts.Name = Dialect
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	database := opts.Database
	if database == "" {
		database = defaultDatabase
	}

	return &Client{
		conn:     conn,
		options:  opts,
		database: database,
		log:      opts.Logger.With(zap.String("source", opts.Name)),
	}
}

func parseDSN(dsn string) (*clickhouse.Options, error) {
	if !strings.Contains(dsn, "://") {
		return &clickhouse.Options{Addr: []string{dsn}}, nil
	}

	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse DSN")
	}

	return opts, nil
}

// Close closes the ClickHouse connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Version returns the server version read when the client connected, or nil for clients
// that were not created by NewClientWithOptions.
func (c *Client) Version() *VersionInfo {
	return c.version
}

// Identity reports the connected database as the default schema. ClickHouse identifiers
// are case sensitive.
func (c *Client) Identity() relational.Identity {
	return relational.Identity{
		Dialect:       Dialect,
		DefaultSchema: c.database,
		Name:          c.options.Name,
		Comparer:      identifier.Ordinal,
	}
}

func (c *Client) Tables() relational.Objects[*relational.Table]       { return &tables{c} }
func (c *Client) Views() relational.Objects[*relational.View]         { return &views{c} }
func (c *Client) Sequences() relational.Objects[*relational.Sequence] { return relational.Unsupported[*relational.Sequence]() }
func (c *Client) Synonyms() relational.Objects[*relational.Synonym]   { return relational.Unsupported[*relational.Synonym]() }
func (c *Client) Triggers() relational.Objects[*relational.Trigger]   { return relational.Unsupported[*relational.Trigger]() }

// databaseOf returns the ClickHouse database that id lives in.
func (c *Client) databaseOf(id identifier.Identifier) string {
	if id.HasSchema() {
		return id.Schema()
	}

	return c.database
}
