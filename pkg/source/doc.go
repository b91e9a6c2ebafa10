// Package source provides Static, an in-memory relational.Source.
//
// Static backs DDL files loaded by package ddl and is also the fixture used throughout the
// tests. Every Store counts the calls made to it and can be told to fail, which makes it
// easy to assert how often a cache reached its source.
package source
