package registry

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/erdemdnmz2/WebQuery/internal/config"
	"github.com/erdemdnmz2/WebQuery/internal/core"
	"github.com/erdemdnmz2/WebQuery/internal/logger"
	"github.com/erdemdnmz2/WebQuery/internal/pool"
)

// Target is what the execution layer needs to reach a database.
type Target struct {
	Server     string
	Address    string
	Technology string
	Database   string
}

type serverInfo struct {
	technology string
	address    string
	databases  map[string]struct{}
}

// Registry maps server names to their reachable databases and backend
// technology. Built once at startup from config plus a catalog probe per
// server; read-only afterwards except for explicit admin refreshes.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]*serverInfo
	repo    core.DatabaseRepository

	catalogUser     string
	catalogPassword string
}

func New(cfg *config.Config, repo core.DatabaseRepository) *Registry {
	servers := make(map[string]*serverInfo, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers[s.Name] = &serverInfo{
			technology: s.Technology,
			address:    s.Address,
			databases:  make(map[string]struct{}),
		}
	}
	return &Registry{
		servers:         servers,
		repo:            repo,
		catalogUser:     cfg.CatalogUser,
		catalogPassword: cfg.CatalogPassword,
	}
}

// Refresh probes every configured server's catalog and merges in the
// admin-registered databases from the record store. A server that cannot be
// reached keeps an empty list; startup must not fail because one backend is
// down.
func (r *Registry) Refresh(ctx context.Context) {
	// Probes are network round trips; run them before taking the write lock.
	r.mu.RLock()
	type probe struct {
		name string
		info *serverInfo
	}
	probes := make([]probe, 0, len(r.servers))
	for name, info := range r.servers {
		probes = append(probes, probe{name, info})
	}
	r.mu.RUnlock()

	found := make(map[string][]string, len(probes))
	for _, p := range probes {
		names, err := r.probeCatalog(ctx, p.info)
		if err != nil {
			logger.Error.Printf("registry: could not probe %s: %v", p.name, err)
			continue
		}
		found[p.name] = names
		logger.Info.Printf("registry: %s: %d databases found", p.name, len(names))
	}

	entries, err := r.repo.List()
	if err != nil {
		logger.Error.Printf("registry: could not load registered databases: %v", err)
		entries = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, names := range found {
		info, ok := r.servers[name]
		if !ok {
			continue
		}
		for _, db := range names {
			info.databases[db] = struct{}{}
		}
	}
	for _, e := range entries {
		info, ok := r.servers[e.Server]
		if !ok {
			logger.Error.Printf("registry: registered database %s/%s references unconfigured server", e.Server, e.Database)
			continue
		}
		info.databases[e.Database] = struct{}{}
	}
}

func (r *Registry) probeCatalog(ctx context.Context, info *serverInfo) ([]string, error) {
	query, catalogDB, ok := catalogQuery(info.technology)
	if !ok {
		// sqlite and odbc have no probeable catalog; admin registration only
		return nil, nil
	}

	spec := pool.ConnectionSpec{
		Technology: info.technology,
		Username:   r.catalogUser,
		Password:   r.catalogPassword,
		Server:     info.address,
		Database:   catalogDB,
	}
	driver, err := pool.DriverFor(spec.Technology)
	if err != nil {
		return nil, err
	}
	dsn, err := spec.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := db.QueryContext(probeCtx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var dbName string
		if err := rows.Scan(&dbName); err != nil {
			return nil, err
		}
		names = append(names, dbName)
	}
	return names, rows.Err()
}

func catalogQuery(technology string) (query, catalogDB string, ok bool) {
	switch technology {
	case "mssql":
		return `SELECT name FROM sys.databases WHERE database_id > 4`, "master", true
	case "postgres":
		return `SELECT datname FROM pg_database WHERE datistemplate = false AND datname <> 'postgres'`, "postgres", true
	case "mysql":
		return `SELECT schema_name FROM information_schema.schemata
			WHERE schema_name NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')`, "information_schema", true
	default:
		return "", "", false
	}
}

// ListServers returns server name -> sorted database names.
func (r *Registry) ListServers() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string, len(r.servers))
	for name, info := range r.servers {
		dbs := make([]string, 0, len(info.databases))
		for db := range info.databases {
			dbs = append(dbs, db)
		}
		sort.Strings(dbs)
		out[name] = dbs
	}
	return out
}

// Resolve validates the (server, database) pair and returns the execution
// target. Unknown pairs fail with ErrNotConfigured.
func (r *Registry) Resolve(server, database string) (Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.servers[server]
	if !ok {
		return Target{}, fmt.Errorf("server %q: %w", server, core.ErrNotConfigured)
	}
	if _, ok := info.databases[database]; !ok {
		return Target{}, fmt.Errorf("database %q on server %q: %w", database, server, core.ErrNotConfigured)
	}
	return Target{
		Server:     server,
		Address:    info.address,
		Technology: info.technology,
		Database:   database,
	}, nil
}

// AddDatabase registers a database under a configured server, persists it,
// and makes it resolvable immediately. Administrative action.
func (r *Registry) AddDatabase(server, database, technology string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.servers[server]
	if !ok {
		return fmt.Errorf("server %q: %w", server, core.ErrNotConfigured)
	}
	if _, ok := info.databases[database]; ok {
		return fmt.Errorf("database %s/%s already registered", server, database)
	}

	exists, err := r.repo.Exists(server, database)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("database %s/%s already registered", server, database)
	}

	if technology == "" {
		technology = info.technology
	}
	if err := r.repo.Add(&core.ServerEntry{Server: server, Database: database, Technology: technology}); err != nil {
		return err
	}
	info.databases[database] = struct{}{}
	return nil
}
