// Package cmd provides the CLI commands of schemalens.
//
// Commands are plain functions returning a *cli.Command (urfave/cli/v3). They are
// collected through the fx "commands" group and run by Run once the application starts.
// Every command shares a session holding the loaded configuration and the overlay built
// from its layers; the overlay is opened lazily, so help and version work without a
// configuration file.
//
// # Available Commands
//
//   - ls: list objects, optionally restricted to one kind
//   - show: print one object with its columns and definition
//   - exists: print true or false for a name
//
// # Global Options
//
//   - --config, -c: configuration file (env SCHEMALENS_CONFIG, default schemalens.yaml)
//   - --verbose, -v: debug logging, including every cache fetch
//   - --no-color: plain output
//
// # Example Usage
//
//	schemalens ls --kind table
//	schemalens show billing.invoices
//	schemalens show --resolve people
//	schemalens exists users --kind view
//
// Names are dotted and may be quoted: `"my.schema".users`. Names without a schema are
// qualified with the default schema of the lowest layer.
package cmd
