// Package docker runs disposable ClickHouse servers for integration tests.
//
// A Server starts the official clickhouse-server image through testcontainers. Scripts from
// init directories and inline SQL are staged into the image's init directory and run once
// when the server first starts:
//
//	srv := docker.NewServer(
//		docker.WithVersion("24.8"),
//		docker.WithInitDir("testdata/init"),
//		docker.WithScripts("CREATE DATABASE scratch"),
//	)
//	if err := srv.Start(ctx); err != nil {
//		return err
//	}
//	defer srv.Stop(ctx)
//
//	dsn, _ := srv.DSN(ctx)
//	client, _ := clickhouse.NewClient(ctx, dsn)
//
// Tests should call Available first and skip when no Docker daemon is reachable.
package docker
