package app

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"worksim/internal/config"
	"worksim/internal/db"
	"worksim/internal/migrate"
	"worksim/internal/roster"
)

// ResolveConfig picks the settings and roster of a run. Without a roster
// path the workspace worksim.yml supplies both. An xlsx roster takes its
// settings from worksim.yml when present, otherwise from the defaults.
func ResolveConfig(workspace, rosterPath string) (*config.Config, error) {
	if rosterPath == "" {
		return config.Load(workspace)
	}
	r, sim, err := roster.Load(rosterPath)
	if err != nil {
		return nil, err
	}
	if sim == nil {
		settings, err := workspaceSimulation(workspace)
		if err != nil {
			return nil, err
		}
		sim = &settings
	}
	cfg := &config.Config{Simulation: *sim, Roster: r}
	return cfg, cfg.Validate()
}

func workspaceSimulation(workspace string) (config.Simulation, error) {
	data, err := os.ReadFile(config.Path(workspace))
	if errors.Is(err, fs.ErrNotExist) {
		return config.DefaultSimulation(), nil
	}
	if err != nil {
		return config.Simulation{}, err
	}
	sim, err := config.SimulationFromYAML(data)
	if err != nil {
		return config.Simulation{}, fmt.Errorf("%s: %w", config.Path(workspace), err)
	}
	return sim, nil
}

// OpenStore opens the workspace database and applies migrations.
func OpenStore(workspace string) (*sql.DB, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; one connection avoids lock errors between
	// the run recorder and readers in the same process
	conn.SetMaxOpenConns(1)
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}
