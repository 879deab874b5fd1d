package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv is the environment variable holding the MapTiler key.
const APIKeyEnv = "MAPTILER_API_KEY"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Log      LogConfig     `yaml:"log"`
	Engine   EngineConfig  `yaml:"engine"`
	Map      MapConfig     `yaml:"map"`
	Terrain  TerrainConfig `yaml:"terrain"`
	Camera   CameraConfig  `yaml:"camera"`
	Marker   MarkerConfig  `yaml:"marker"`
	Region   RegionConfig  `yaml:"region"`
	Overlays OverlayConfig `yaml:"overlays"`
	UI       UIConfig      `yaml:"ui"`
	Spots    []SpotConfig  `yaml:"spots"`
	Notices  NoticesConfig `yaml:"notices"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
}

// LogSettings holds settings for a specific log file.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// EngineConfig selects the map engine adapter.
type EngineConfig struct {
	// Provider is "mock" (headless) or "remote" (browser over websocket).
	Provider string `yaml:"provider"`
	// AutoLoad is how long the headless engine takes to report load; 0 never loads.
	AutoLoad Duration `yaml:"auto_load"`
}

// MapConfig holds the base map settings.
type MapConfig struct {
	Container string     `yaml:"container"`
	StyleURL  string     `yaml:"style_url"`
	APIKey    string     `yaml:"api_key"`
	Center    [2]float64 `yaml:"center,flow"`
	Zoom      float64    `yaml:"zoom"`
	MinZoom   float64    `yaml:"min_zoom"`
	MaxZoom   float64    `yaml:"max_zoom"`
	Bearing   float64    `yaml:"bearing"`
	Pitch     float64    `yaml:"pitch"`
	Width     int        `yaml:"width"`
	Height    int        `yaml:"height"`
}

// TerrainConfig describes the raster-dem source and terrain attachment.
type TerrainConfig struct {
	SourceID     string  `yaml:"source_id"`
	TilesURL     string  `yaml:"tiles_url"`
	TileSize     int     `yaml:"tile_size"`
	MaxZoom      int     `yaml:"max_zoom"`
	Exaggeration float64 `yaml:"exaggeration"`
}

// CameraConfig is the fixed target the marker flies to.
type CameraConfig struct {
	Name     string     `yaml:"name"`
	Center   [2]float64 `yaml:"center,flow"`
	Zoom     float64    `yaml:"zoom"`
	Bearing  float64    `yaml:"bearing"`
	Pitch    float64    `yaml:"pitch"`
	Duration Duration   `yaml:"duration"`
}

// MarkerConfig describes the point-of-interest marker.
type MarkerConfig struct {
	ID       string     `yaml:"id"`
	SpotID   string     `yaml:"spot_id"`
	Title    string     `yaml:"title"`
	Position [2]float64 `yaml:"position,flow"`
	Anchor   string     `yaml:"anchor"`
	// Icon is inline SVG; IconPath, when set, is read instead.
	Icon     string `yaml:"icon"`
	IconPath string `yaml:"icon_path"`
}

// RegionConfig selects the region of interest.
type RegionConfig struct {
	Name string `yaml:"name"`
	// Path to a GeoJSON or shapefile; empty uses Bound.
	Path    string     `yaml:"path"`
	Bound   [4]float64 `yaml:"bound,flow"`
	Padding Distance   `yaml:"padding"`
}

// OverlayConfig holds the initial overlay toggles.
type OverlayConfig struct {
	PerformanceMode bool `yaml:"performance_mode"`
	Terrain         bool `yaml:"terrain"`
	Models          bool `yaml:"models"`
}

// UIConfig holds view timing settings.
type UIConfig struct {
	LoadingTimeout Duration `yaml:"loading_timeout"`
	LiveInterval   Duration `yaml:"live_interval"`
}

// NoticesConfig holds notification settings.
type NoticesConfig struct {
	History int `yaml:"history"`
}

// SpotConfig is a tourist spot with an optional 3D model.
type SpotConfig struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Position    [2]float64 `yaml:"position,flow"`
	ModelURL    string     `yaml:"model_url"`
	Scale       float64    `yaml:"scale"`
	Rotation    float64    `yaml:"rotation"`
}

// DefaultMarkerIcon is a map pin.
const DefaultMarkerIcon = `<svg xmlns="http://www.w3.org/2000/svg" width="36" height="36" viewBox="0 0 24 24" fill="#e11d48" stroke="#ffffff" stroke-width="1.5"><path d="M12 2C8.13 2 5 5.13 5 9c0 5.25 7 13 7 13s7-7.75 7-13c0-3.87-3.13-7-7-7z"/><circle cx="12" cy="9" r="2.5" fill="#ffffff"/></svg>`

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "localhost:1921",
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "INFO",
			},
		},
		Engine: EngineConfig{
			Provider: "remote",
			AutoLoad: Duration(500 * time.Millisecond),
		},
		Map: MapConfig{
			Container: "map",
			StyleURL:  "https://api.maptiler.com/maps/satellite/style.json?key={key}",
			Center:    [2]float64{124.2422, 13.7565},
			Zoom:      10,
			MinZoom:   5,
			MaxZoom:   22,
			Width:     1280,
			Height:    800,
		},
		Terrain: TerrainConfig{
			SourceID:     "terrainSource",
			TilesURL:     "https://api.maptiler.com/tiles/terrain-rgb-v2/tiles.json?key={key}",
			TileSize:     256,
			MaxZoom:      14,
			Exaggeration: 1.5,
		},
		Camera: CameraConfig{
			Name:     "Binurong Point",
			Center:   [2]float64{124.325374, 13.559598},
			Zoom:     19.28,
			Bearing:  0,
			Pitch:    60,
			Duration: Duration(2 * time.Second),
		},
		Marker: MarkerConfig{
			ID:       "binurong-point",
			SpotID:   "binurong-point",
			Title:    "Binurong Point",
			Position: [2]float64{124.325192, 13.559582},
			Anchor:   "bottom",
			Icon:     DefaultMarkerIcon,
		},
		Region: RegionConfig{
			Name:  "Catanduanes",
			Bound: [4]float64{123.98, 13.50, 124.45, 14.12},
		},
		Overlays: OverlayConfig{
			PerformanceMode: true,
			Terrain:         true,
			Models:          false,
		},
		UI: UIConfig{
			LoadingTimeout: Duration(10 * time.Second),
			LiveInterval:   Duration(100 * time.Millisecond),
		},
		Notices: NoticesConfig{
			History: 50,
		},
		Spots: []SpotConfig{
			{
				ID:          "binurong-point",
				Name:        "Binurong Point",
				Description: "Rolling grassland cliffs facing the Pacific in Baras.",
				Position:    [2]float64{124.325192, 13.559582},
				ModelURL:    "/models/binurong-point.glb",
				Scale:       1,
			},
			{
				ID:          "bato-church",
				Name:        "Bato Church",
				Description: "Coral stone church completed in 1830.",
				Position:    [2]float64{124.2986, 13.6046},
				ModelURL:    "/models/bato-church.glb",
				Scale:       1,
			},
			{
				ID:          "maribina-falls",
				Name:        "Maribina Falls",
				Description: "Tiered waterfall a short drive from Bato.",
				Position:    [2]float64{124.2917, 13.6243},
				ModelURL:    "/models/maribina-falls.glb",
				Scale:       1,
			},
		},
	}
}

// Load reads the config at path, creating it with defaults if it does not
// exist. A .env file next to the config (or in the working directory) is
// loaded first; the API key falls back to MAPTILER_API_KEY and is never
// written back to disk.
func Load(path string) (*Config, error) {
	loadDotEnv(path)
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if cfg.Map.APIKey == "" {
		cfg.Map.APIKey = os.Getenv(APIKeyEnv)
	}
	if cfg.Marker.IconPath != "" {
		icon, err := os.ReadFile(cfg.Marker.IconPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read marker icon: %w", err)
		}
		cfg.Marker.Icon = string(icon)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(configPath string) {
	candidates := []string{filepath.Join(filepath.Dir(configPath), ".env"), ".env"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			// Existing environment variables win over .env values.
			_ = godotenv.Load(p)
		}
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Engine.Provider {
	case "mock", "remote":
	default:
		add("engine.provider %q must be mock or remote", c.Engine.Provider)
	}
	if !validLngLat(c.Map.Center) {
		add("map.center %v out of range", c.Map.Center)
	}
	if c.Map.MinZoom > c.Map.MaxZoom {
		add("map.min_zoom %.1f above max_zoom %.1f", c.Map.MinZoom, c.Map.MaxZoom)
	}
	if c.Map.Zoom < c.Map.MinZoom || c.Map.Zoom > c.Map.MaxZoom {
		add("map.zoom %.1f outside [%.1f, %.1f]", c.Map.Zoom, c.Map.MinZoom, c.Map.MaxZoom)
	}
	if c.Terrain.SourceID == "" {
		add("terrain.source_id is required")
	}
	if c.Terrain.Exaggeration <= 0 {
		add("terrain.exaggeration must be positive")
	}
	if !validLngLat(c.Camera.Center) {
		add("camera.center %v out of range", c.Camera.Center)
	}
	if c.Camera.Duration < 0 {
		add("camera.duration must not be negative")
	}
	if !validLngLat(c.Marker.Position) {
		add("marker.position %v out of range", c.Marker.Position)
	}
	if c.Region.Path == "" {
		b := c.Region.Bound
		if b[0] >= b[2] || b[1] >= b[3] {
			add("region.bound %v must be [min_lng, min_lat, max_lng, max_lat]", b)
		}
	}
	if c.UI.LoadingTimeout <= 0 {
		add("ui.loading_timeout must be positive")
	}
	seen := make(map[string]bool)
	for i, s := range c.Spots {
		if s.ID == "" {
			add("spots[%d].id is required", i)
		}
		if seen[s.ID] {
			add("spots[%d].id %q is duplicated", i, s.ID)
		}
		seen[s.ID] = true
		if !validLngLat(s.Position) {
			add("spots[%d].position %v out of range", i, s.Position)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func validLngLat(p [2]float64) bool {
	return p[0] >= -180 && p[0] <= 180 && p[1] >= -90 && p[1] <= 90
}

// ResolvedStyleURL substitutes the API key into the style URL.
func (c *Config) ResolvedStyleURL() string {
	return strings.ReplaceAll(c.Map.StyleURL, "{key}", c.Map.APIKey)
}

// ResolvedTerrainURL substitutes the API key into the terrain tiles URL.
func (c *Config) ResolvedTerrainURL() string {
	return strings.ReplaceAll(c.Terrain.TilesURL, "{key}", c.Map.APIKey)
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	out := *cfg
	// never persist a key that came from the environment
	if out.Map.APIKey == os.Getenv(APIKeyEnv) {
		out.Map.APIKey = ""
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# iotinerary configuration
# ------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles), ft
# Coordinates are [longitude, latitude].

`)
	data = append(header, data...)

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: mock, remote\n${1}provider:"))

	reKey := regexp.MustCompile(`(?m)^(\s+)api_key:`)
	data = reKey.ReplaceAll(data, []byte("${1}# Leave empty to use "+APIKeyEnv+" from the environment or .env\n${1}api_key:"))

	reBound := regexp.MustCompile(`(?m)^(\s+)bound:`)
	data = reBound.ReplaceAll(data, []byte("${1}# [min_lng, min_lat, max_lng, max_lat], used when path is empty\n${1}bound:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
