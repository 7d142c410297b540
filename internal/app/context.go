package app

import (
	"database/sql"

	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/internal/engine"
	"taskboard/internal/migrate"
)

// Context bundles the open database, the engine built on it and the loaded
// workspace config. It is the shared bootstrap for the CLI and the server.
type Context struct {
	Workspace string
	DB        *sql.DB
	Engine    engine.Engine
	Config    *config.Config
}

// Bootstrap ensures the workspace exists, opens its database, applies
// pending migrations and loads taskboard.yml (falling back to defaults).
func Bootstrap(workspace string) (*Context, error) {
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Context{
		Workspace: workspace,
		DB:        conn,
		Engine:    engine.New(conn),
		Config:    cfg,
	}, nil
}

func (c *Context) Close() error {
	return c.DB.Close()
}
