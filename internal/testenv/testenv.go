// Package testenv starts a MariaDB ledger, and optionally an Authorizer, in containers.
// It is used by integration tests and by cmd/testcontainers.
package testenv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/go-sql-driver/mysql"
	"github.com/localnerve/traits/data"
	"github.com/localnerve/traits/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Options names the images and accounts of the environment
type Options struct {
	DBImage        string
	DBAlias        string
	RootPassword   string
	Database       string
	AppUser        string
	AppPassword    string
	User           string
	Password       string
	AuthzImage     string
	AuthzDatabase  string
	AuthzClientID  string
	AuthzAdminKey  string
	AuthzPort      string
	ContainerDebug bool
}

// OptionsFromEnv reads options from the same variables the service uses, plus
// DB_IMAGE, DB_ROOT_PASSWORD and the AUTHZ_* container settings.
func OptionsFromEnv() Options {
	return Options{
		DBImage:        getEnv("DB_IMAGE", ""),
		DBAlias:        getEnv("DB_HOST", "mariadb"),
		RootPassword:   getEnv("DB_ROOT_PASSWORD", "root"),
		Database:       getEnv("DB_APP_DATABASE", "traits"),
		AppUser:        getEnv("DB_APP_USER", "traits_app"),
		AppPassword:    getEnv("DB_APP_PASSWORD", "traits_app"),
		User:           getEnv("DB_USER", "traits_user"),
		Password:       getEnv("DB_PASSWORD", "traits_user"),
		AuthzImage:     getEnv("AUTHZ_IMAGE", ""),
		AuthzDatabase:  getEnv("AUTHZ_DATABASE", "authorizer"),
		AuthzClientID:  getEnv("AUTHZ_CLIENT_ID", ""),
		AuthzAdminKey:  getEnv("AUTHZ_ADMIN_SECRET", ""),
		AuthzPort:      getEnv("AUTHZ_PORT", "8080"),
		ContainerDebug: os.Getenv("DEBUG_CONTAINER") == "true",
	}
}

// Env is a running environment
type Env struct {
	Network    *testcontainers.DockerNetwork
	DB         testcontainers.Container
	Authorizer testcontainers.Container

	// Host and Port reach the ledger from the test process
	Host string
	Port string
	// AuthzURL reaches the Authorizer from the test process, when one was started
	AuthzURL string

	opts Options
}

// Start creates the network, starts and initializes MariaDB and, when an Authorizer image is
// configured, starts the Authorizer. On error everything already started is terminated.
func Start(ctx context.Context, opts Options, logf func(format string, args ...any)) (*Env, error) {
	if opts.DBImage == "" {
		return nil, errors.New("no database image configured, set DB_IMAGE")
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}

	env := &Env{opts: opts}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	env.Network = nw

	if err := env.startDB(ctx, logf); err != nil {
		_ = env.Terminate(context.Background())
		return nil, err
	}

	if opts.AuthzImage != "" {
		if err := env.startAuthorizer(ctx, logf); err != nil {
			_ = env.Terminate(context.Background())
			return nil, err
		}
	}

	return env, nil
}

func (e *Env) startDB(ctx context.Context, logf func(string, ...any)) error {
	dbPort, err := nat.NewPort("tcp", "3306")
	if err != nil {
		return fmt.Errorf("failed to create DB port: %w", err)
	}

	hostConfigModifier := func(hostConfig *container.HostConfig) {
		// the ledger is disposable
		hostConfig.Tmpfs = map[string]string{"/var/lib/mysql": "rw"}
		if e.opts.ContainerDebug {
			hostConfig.PortBindings = nat.PortMap{
				dbPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: "3306"}},
			}
		}
	}

	db, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        e.opts.DBImage,
			ExposedPorts: []string{string(dbPort)},
			Env: map[string]string{
				"MARIADB_ROOT_PASSWORD": e.opts.RootPassword,
				"MYSQL_ROOT_PASSWORD":   e.opts.RootPassword,
			},
			HostConfigModifier: hostConfigModifier,
			WaitingFor:         wait.ForListeningPort(dbPort).WithStartupTimeout(90 * time.Second),
			Networks:           []string{e.Network.Name},
			NetworkAliases: map[string][]string{
				e.Network.Name: {e.opts.DBAlias},
			},
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start database: %w", err)
	}
	e.DB = db

	host, err := db.Host(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve database host: %w", err)
	}
	mapped, err := db.MappedPort(ctx, dbPort)
	if err != nil {
		return fmt.Errorf("failed to resolve database port: %w", err)
	}
	e.Host, e.Port = host, mapped.Port()
	logf("DB_HOST=%s DB_PORT=%s", e.Host, e.Port)

	return e.initDB(ctx)
}

func (e *Env) initDB(ctx context.Context) error {
	dsn := mysql.NewConfig()
	dsn.User = "root"
	dsn.Passwd = e.opts.RootPassword
	dsn.Net = "tcp"
	dsn.Addr = e.Host + ":" + e.Port
	dsn.MultiStatements = false

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return fmt.Errorf("failed to configure root connection: %w", err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()

	// The port listens before the server accepts logins
	for i := 0; i < 30; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return fmt.Errorf("database not ready after 30 seconds: %w", err)
	}

	setup := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", e.opts.Database),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s'", e.opts.AppUser, e.opts.AppPassword),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s'", e.opts.User, e.opts.Password),
	}
	if e.opts.AuthzImage != "" {
		setup = append(setup,
			fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", e.opts.AuthzDatabase),
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.authorizer_users (id CHAR(36) NOT NULL PRIMARY KEY)", e.opts.AuthzDatabase),
		)
	}
	for _, stmt := range setup {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: when executing > %s", err, stmt)
		}
	}

	vars := map[string]string{
		"DB_APP_DATABASE": e.opts.Database,
		"DB_APP_USER":     e.opts.AppUser,
		"DB_USER":         e.opts.User,
	}
	for _, script := range []string{data.InitdbMariaDBTables, data.InitdbMariaDBPrivileges} {
		if err := ExecScript(ctx, db, data.Expand(script, vars)); err != nil {
			return err
		}
	}

	return nil
}

func (e *Env) startAuthorizer(ctx context.Context, logf func(string, ...any)) error {
	authzPort, err := nat.NewPort("tcp", e.opts.AuthzPort)
	if err != nil {
		return fmt.Errorf("failed to create Authorizer port: %w", err)
	}

	logLevel := "info"
	if e.opts.ContainerDebug {
		logLevel = "debug"
	}

	authz, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        e.opts.AuthzImage,
			ExposedPorts: []string{string(authzPort)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     e.opts.AuthzClientID,
				"PORT":          e.opts.AuthzPort,
				"DATABASE_TYPE": "mariadb",
				"DATABASE_NAME": e.opts.AuthzDatabase,
				"DATABASE_URL": fmt.Sprintf("root:%s@tcp(%s:3306)/%s",
					e.opts.RootPassword, e.opts.DBAlias, e.opts.AuthzDatabase),
				"ADMIN_SECRET":  e.opts.AuthzAdminKey,
				"ROLES":         "admin,user",
				"DEFAULT_ROLES": "user",
				"LOG_LEVEL":     logLevel,
			},
			WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(30 * time.Second),
			Networks:   []string{e.Network.Name},
			NetworkAliases: map[string][]string{
				e.Network.Name: {"authorizer"},
			},
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start Authorizer: %w", err)
	}
	e.Authorizer = authz

	host, err := authz.Host(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve Authorizer host: %w", err)
	}
	mapped, err := authz.MappedPort(ctx, authzPort)
	if err != nil {
		return fmt.Errorf("failed to resolve Authorizer port: %w", err)
	}
	e.AuthzURL = fmt.Sprintf("http://%s:%s", host, mapped.Port())
	logf("AUTHZ_URL=%s", e.AuthzURL)

	return nil
}

// Config returns a service configuration pointing at this environment
func (e *Env) Config() *config.Config {
	cfg := &config.Config{
		Port:                 "3000",
		DBType:               "mariadb",
		DBHost:               e.Host,
		DBPort:               e.Port,
		DBAppDatabase:        e.opts.Database,
		DBAppUser:            e.opts.AppUser,
		DBAppPassword:        e.opts.AppPassword,
		DBAppConnectionLimit: 5,
		DBUser:               e.opts.User,
		DBPassword:           e.opts.Password,
		DBConnectionLimit:    10,
		DBLogLevel:           "warn",
		GraphStorage:         "memory",
		GraphPath:            "traits-test",
		GraphPartition:       "main",
		SearchMaxHops:        8,
	}
	if e.AuthzURL != "" {
		cfg.AuthzURL = e.AuthzURL
		cfg.AuthzClientID = e.opts.AuthzClientID
	}
	return cfg
}

// Terminate stops every container and removes the network
func (e *Env) Terminate(ctx context.Context) error {
	var errs []error
	if e.Authorizer != nil {
		if err := e.Authorizer.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate Authorizer: %w", err))
		}
	}
	if e.DB != nil {
		if err := e.DB.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate database: %w", err))
		}
	}
	if e.Network != nil {
		if err := e.Network.Remove(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove network: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ExecScript runs each ;-terminated statement of a script. Lines starting with -- are ignored.
func ExecScript(ctx context.Context, db *sql.DB, script string) error {
	for _, stmt := range SplitStatements(script) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: when executing > %s", err, stmt)
		}
	}
	return nil
}

// SplitStatements splits a script into statements, dropping comment lines and blanks
func SplitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	var stmts []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
