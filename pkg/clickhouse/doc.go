// Package clickhouse reads table and view metadata from a ClickHouse server.
//
// Client implements relational.Source on top of the system.tables and system.columns
// tables. ClickHouse databases play the role of schemas: the identifier analytics.events
// names the events table in the analytics database, and unqualified names resolve against
// the database the client connected to.
//
// ClickHouse has no sequences, synonyms or triggers, so those kinds are always empty.
// Objects in the system and information_schema databases are never reported, nor are the
// hidden inner tables that back materialized views.
//
// Example usage:
//
//	client, err := clickhouse.NewClient(ctx, "clickhouse://default:@localhost:9000/analytics")
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	db, err := relational.NewCached(client)
//	if err != nil {
//		return err
//	}
//
//	events, ok, err := db.Tables().Get(ctx, identifier.Local("events"))
//
// TLS connections are configured through ClientOptions.TLSSettings, see TLSSettings.TLSConfig.
package clickhouse
