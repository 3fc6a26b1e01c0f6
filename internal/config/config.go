// Package config holds the map compiler settings, loaded from an optional
// YAML file on top of built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvVar switches the compiler into dev mode when set to "dev".
const EnvVar = "MAPGEN_ENV"

type Config struct {
	PlayerLayer         string `yaml:"player_layer"`
	BlockersLayer       string `yaml:"blockers_layer"`
	DynamicSpritesGroup string `yaml:"dynamic_sprites_group"`

	DestTileSize       []int `yaml:"dest_tile_size"`
	MaxSpriteFootprint int   `yaml:"max_sprite_footprint"`
	ImageCacheMB       int   `yaml:"image_cache_mb"`

	Outputs Outputs `yaml:"outputs"`

	Dev     bool   `yaml:"dev"`
	IndexDB string `yaml:"index_db"`
	LogFile string `yaml:"log_file"`
}

type Outputs struct {
	Atlas    string `yaml:"atlas"`
	Map      string `yaml:"map"`
	RawMap   string `yaml:"raw_map"`
	Missions string `yaml:"missions"`
	Zstd     bool   `yaml:"zstd"`
}

func Defaults() Config {
	return Config{
		PlayerLayer:         "Player",
		BlockersLayer:       "Blockers",
		DynamicSpritesGroup: "DynamicSprites",
		DestTileSize:        []int{32, 32},
		MaxSpriteFootprint:  2,
		ImageCacheMB:        256,
		Outputs: Outputs{
			Atlas:    "tileset.png",
			Map:      "map.json",
			RawMap:   "map.raw.json",
			Missions: "missions.json",
			Zstd:     true,
		},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	cfg.Normalize()
	if strings.TrimSpace(os.Getenv(EnvVar)) == "dev" {
		cfg.Dev = true
	}
	if err := cfg.Validate(); err != nil {
		if path != "" {
			return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	c.PlayerLayer = strings.TrimSpace(c.PlayerLayer)
	c.BlockersLayer = strings.TrimSpace(c.BlockersLayer)
	c.DynamicSpritesGroup = strings.TrimSpace(c.DynamicSpritesGroup)
	if len(c.DestTileSize) == 1 {
		c.DestTileSize = []int{c.DestTileSize[0], c.DestTileSize[0]}
	}
	c.IndexDB = strings.TrimSpace(c.IndexDB)
	c.LogFile = strings.TrimSpace(c.LogFile)
}

func (c Config) Validate() error {
	names := map[string]string{
		"player_layer":          c.PlayerLayer,
		"blockers_layer":        c.BlockersLayer,
		"dynamic_sprites_group": c.DynamicSpritesGroup,
	}
	seen := map[string]string{}
	for _, key := range []string{"player_layer", "blockers_layer", "dynamic_sprites_group"} {
		v := names[key]
		if v == "" {
			return fmt.Errorf("%s: empty", key)
		}
		if other, ok := seen[v]; ok {
			return fmt.Errorf("%s and %s both name %q", other, key, v)
		}
		seen[v] = key
	}
	if len(c.DestTileSize) != 2 || c.DestTileSize[0] <= 0 || c.DestTileSize[1] <= 0 {
		return fmt.Errorf("dest_tile_size: want [width, height] > 0, got %v", c.DestTileSize)
	}
	if c.MaxSpriteFootprint < 1 || c.MaxSpriteFootprint > 2 {
		return fmt.Errorf("max_sprite_footprint: %d not in [1,2]", c.MaxSpriteFootprint)
	}
	if c.ImageCacheMB <= 0 {
		return fmt.Errorf("image_cache_mb: must be > 0")
	}
	for key, name := range map[string]string{
		"outputs.atlas":    c.Outputs.Atlas,
		"outputs.map":      c.Outputs.Map,
		"outputs.raw_map":  c.Outputs.RawMap,
		"outputs.missions": c.Outputs.Missions,
	} {
		if name == "" || name != filepath.Base(name) {
			return fmt.Errorf("%s: %q is not a bare file name", key, name)
		}
	}
	return nil
}

func (c Config) DestTileWidth() int  { return c.DestTileSize[0] }
func (c Config) DestTileHeight() int { return c.DestTileSize[1] }
