// Package config loads kanmap's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/hylla/kanmap/internal/app"
	"github.com/hylla/kanmap/internal/layout"
)

// Config is the full on-disk configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Board    BoardConfig    `toml:"board"`
	Layout   LayoutConfig   `toml:"layout"`
	Bridge   BridgeConfig   `toml:"bridge"`
	Server   ServerConfig   `toml:"server"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
	// DevFile mirrors logs to the platform log path when true.
	DevFile bool `toml:"dev_file"`
}

type BoardConfig struct {
	CurrentUser        string         `toml:"current_user"`
	WidgetID           string         `toml:"widget_id"`
	ColumnDeletePolicy string         `toml:"column_delete_policy"` // blocking | cascading
	Columns            []ColumnConfig `toml:"columns"`
}

// ColumnConfig seeds one lane on an empty board.
type ColumnConfig struct {
	ID     string `toml:"id"`
	Title  string `toml:"title"`
	IsDone bool   `toml:"is_done"`
}

// LayoutConfig mirrors layout.Metrics in pixels.
type LayoutConfig struct {
	ColumnWidth     float64 `toml:"column_width"`
	ColumnGap       float64 `toml:"column_gap"`
	HeaderHeight    float64 `toml:"header_height"`
	Padding         float64 `toml:"padding"`
	TaskHeight      float64 `toml:"task_height"`
	TaskGap         float64 `toml:"task_gap"`
	AddButtonHeight float64 `toml:"add_button_height"`
	MinColumnHeight float64 `toml:"min_column_height"`
	NodeWidth       float64 `toml:"node_width"`
	NodeHeight      float64 `toml:"node_height"`
	SiblingGap      float64 `toml:"sibling_gap"`
	LevelGap        float64 `toml:"level_gap"`
	RootGap         float64 `toml:"root_gap"`
}

type BridgeConfig struct {
	Endpoint string `toml:"endpoint"`
	Token    string `toml:"token"`
	Timeout  string `toml:"timeout"`
	AutoSave bool   `toml:"autosave"`
}

type ServerConfig struct {
	HTTPBind       string   `toml:"http_bind"`
	AllowedOrigins []string `toml:"allowed_origins"`
	APIEndpoint    string   `toml:"api_endpoint"`
	MCPEndpoint    string   `toml:"mcp_endpoint"`
	WSEndpoint     string   `toml:"ws_endpoint"`
}

func layoutFromMetrics(m layout.Metrics) LayoutConfig {
	return LayoutConfig{
		ColumnWidth:     m.ColumnWidth,
		ColumnGap:       m.ColumnGap,
		HeaderHeight:    m.HeaderHeight,
		Padding:         m.Padding,
		TaskHeight:      m.TaskHeight,
		TaskGap:         m.TaskGap,
		AddButtonHeight: m.AddButtonHeight,
		MinColumnHeight: m.MinColumnHeight,
		NodeWidth:       m.NodeWidth,
		NodeHeight:      m.NodeHeight,
		SiblingGap:      m.SiblingGap,
		LevelGap:        m.LevelGap,
		RootGap:         m.RootGap,
	}
}

// Metrics converts the layout section.
func (l LayoutConfig) Metrics() layout.Metrics {
	return layout.Metrics{
		ColumnWidth:     l.ColumnWidth,
		ColumnGap:       l.ColumnGap,
		HeaderHeight:    l.HeaderHeight,
		Padding:         l.Padding,
		TaskHeight:      l.TaskHeight,
		TaskGap:         l.TaskGap,
		AddButtonHeight: l.AddButtonHeight,
		MinColumnHeight: l.MinColumnHeight,
		NodeWidth:       l.NodeWidth,
		NodeHeight:      l.NodeHeight,
		SiblingGap:      l.SiblingGap,
		LevelGap:        l.LevelGap,
		RootGap:         l.RootGap,
	}
}

func defaultColumns() []ColumnConfig {
	tpls := app.DefaultColumnTemplates()
	out := make([]ColumnConfig, 0, len(tpls))
	for _, tpl := range tpls {
		out = append(out, ColumnConfig{ID: tpl.ID, Title: tpl.Title, IsDone: tpl.IsDone})
	}
	return out
}

// Default returns the configuration used when no file exists.
func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Board: BoardConfig{
			ColumnDeletePolicy: string(app.ColumnDeleteBlocking),
			Columns:            defaultColumns(),
		},
		Layout: layoutFromMetrics(layout.DefaultMetrics()),
		Bridge: BridgeConfig{
			Timeout:  "10s",
			AutoSave: true,
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
			WSEndpoint:  "/ws",
		},
	}
}

// Load reads path over defaults. A missing or empty file yields defaults unchanged.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports the first invalid field by its TOML name.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path is required")
	}
	if level := strings.TrimSpace(c.Logging.Level); level != "" {
		if _, err := charmLog.ParseLevel(level); err != nil {
			return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
		}
	}

	if _, err := app.ParseColumnDeletePolicy(c.Board.ColumnDeletePolicy); err != nil {
		return fmt.Errorf("invalid board.column_delete_policy: %q", c.Board.ColumnDeletePolicy)
	}
	seen := map[string]struct{}{}
	done := 0
	for idx, col := range c.Board.Columns {
		id := strings.TrimSpace(col.ID)
		if id == "" {
			return fmt.Errorf("board.columns[%d].id is required", idx)
		}
		if strings.TrimSpace(col.Title) == "" {
			return fmt.Errorf("board.columns[%d].title is required", idx)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("board.columns[%d].id is duplicated: %s", idx, id)
		}
		seen[id] = struct{}{}
		if col.IsDone {
			done++
		}
	}
	if done > 1 {
		return errors.New("board.columns may flag at most one is_done column")
	}

	if err := c.Layout.Metrics().Validate(); err != nil {
		return err
	}

	if endpoint := strings.TrimSpace(c.Bridge.Endpoint); endpoint != "" {
		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid bridge.endpoint: %q", c.Bridge.Endpoint)
		}
	}
	if _, err := c.Bridge.TimeoutDuration(); err != nil {
		return err
	}

	if strings.TrimSpace(c.Server.HTTPBind) == "" {
		return errors.New("server.http_bind is required")
	}
	return nil
}

// TimeoutDuration parses bridge.timeout; empty means the bridge default.
func (b BridgeConfig) TimeoutDuration() (time.Duration, error) {
	raw := strings.TrimSpace(b.Timeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid bridge.timeout: %q", b.Timeout)
	}
	return d, nil
}

// ServiceConfig maps the board and layout sections onto app.ServiceConfig.
func (c Config) ServiceConfig() (app.ServiceConfig, error) {
	policy, err := app.ParseColumnDeletePolicy(c.Board.ColumnDeletePolicy)
	if err != nil {
		return app.ServiceConfig{}, err
	}
	columns := make([]app.ColumnTemplate, 0, len(c.Board.Columns))
	for _, col := range c.Board.Columns {
		columns = append(columns, app.ColumnTemplate{
			ID:     strings.TrimSpace(col.ID),
			Title:  strings.TrimSpace(col.Title),
			IsDone: col.IsDone,
		})
	}
	return app.ServiceConfig{
		CurrentUser:        strings.TrimSpace(c.Board.CurrentUser),
		WidgetID:           strings.TrimSpace(c.Board.WidgetID),
		ColumnDeletePolicy: policy,
		Metrics:            c.Layout.Metrics(),
		DefaultColumns:     columns,
	}, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
