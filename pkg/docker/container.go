package docker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultVersion is the image tag used when no version is requested.
	DefaultVersion = "latest"

	httpPort       = nat.Port("8123/tcp")
	initScriptsDir = "/docker-entrypoint-initdb.d"
	startTimeout   = 5 * time.Minute
)

type (
	// Server is a disposable ClickHouse server running in a container.
	Server struct {
		version string
		dirs    []string
		scripts []string

		ctr *clickhouse.ClickHouseContainer
		tmp string
	}

	// Option configures a Server.
	Option func(*Server)
)

// WithVersion selects the clickhouse-server image tag.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithInitDir adds the *.sql scripts of dir, in lexical order, to the scripts the server
// runs on first start.
func WithInitDir(dir string) Option {
	return func(s *Server) { s.dirs = append(s.dirs, dir) }
}

// WithScripts adds SQL scripts that run on first start, after the scripts of any init
// directory.
func WithScripts(sql ...string) Option {
	return func(s *Server) { s.scripts = append(s.scripts, sql...) }
}

// Available reports whether a Docker daemon can be reached.
func Available(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}

	return exec.CommandContext(ctx, "docker", "ps").Run() == nil
}

// NewServer returns a stopped server.
func NewServer(opts ...Option) *Server {
	s := &Server{version: DefaultVersion}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start runs the container and blocks until the server answers HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	if s.ctr != nil {
		return errors.New("server is already running")
	}

	customizers := []testcontainers.ContainerCustomizer{
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		testcontainers.WithEnv(map[string]string{"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1"}),
		testcontainers.WithWaitStrategyAndDeadline(startTimeout,
			wait.NewHTTPStrategy("/").
				WithPort(httpPort).
				WithStatusCodeMatcher(func(status int) bool { return status == 200 }),
		),
	}

	if len(s.dirs) > 0 || len(s.scripts) > 0 {
		dir, err := s.stage()
		if err != nil {
			s.cleanup()
			return err
		}

		customizers = append(customizers, testcontainers.WithHostConfigModifier(func(hc *container.HostConfig) {
			hc.Mounts = append(hc.Mounts, mount.Mount{
				Type:     mount.TypeBind,
				Source:   dir,
				Target:   initScriptsDir,
				ReadOnly: true,
			})
		}))
	}

	ctr, err := clickhouse.Run(ctx, fmt.Sprintf("clickhouse/clickhouse-server:%s-alpine", s.version), customizers...)
	if err != nil {
		s.cleanup()
		return errors.Wrap(err, "failed to start clickhouse server")
	}

	s.ctr = ctr
	return nil
}

// stage copies the *.sql files of every init directory, followed by the inline scripts,
// into one temp directory. The image runs the scripts of its init directory in lexical
// order, so each file is prefixed with its position.
func (s *Server) stage() (string, error) {
	tmp, err := os.MkdirTemp("", "schemalens-clickhouse-")
	if err != nil {
		return "", errors.Wrap(err, "failed to create script dir")
	}
	s.tmp = tmp

	n := 0
	write := func(name string, sql []byte) error {
		path := filepath.Join(tmp, fmt.Sprintf("%03d_%s", n, name))
		n++
		return errors.Wrapf(os.WriteFile(path, sql, 0o644), "failed to write script %s", path)
	}

	for _, dir := range s.dirs {
		files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
		if err != nil {
			return "", errors.Wrapf(err, "failed to list init dir %s", dir)
		}

		for _, file := range files {
			sql, err := os.ReadFile(file)
			if err != nil {
				return "", errors.Wrapf(err, "failed to read script %s", file)
			}
			if err := write(filepath.Base(file), sql); err != nil {
				return "", err
			}
		}
	}

	for _, sql := range s.scripts {
		if err := write("script.sql", []byte(sql)); err != nil {
			return "", err
		}
	}

	return tmp, nil
}

// Stop terminates the container. Stopping a server that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	defer s.cleanup()
	if s.ctr == nil {
		return nil
	}

	ctr := s.ctr
	s.ctr = nil
	return errors.Wrap(ctr.Terminate(ctx), "failed to stop clickhouse server")
}

func (s *Server) cleanup() {
	if s.tmp != "" {
		_ = os.RemoveAll(s.tmp)
		s.tmp = ""
	}
}

// DSN returns the clickhouse:// address of the running server.
func (s *Server) DSN(ctx context.Context) (string, error) {
	if s.ctr == nil {
		return "", errors.New("server is not running")
	}

	dsn, err := s.ctr.ConnectionString(ctx)
	return dsn, errors.Wrap(err, "failed to get connection string")
}

// Running reports whether Start succeeded and Stop has not been called since.
func (s *Server) Running() bool {
	return s.ctr != nil
}
