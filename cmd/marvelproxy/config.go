package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/moddengine/marvel"
)

type Config struct {
	Marvel    MarvelConfig `json:"marvel.com"`
	Cache     CacheConfig  `json:"cache"`
	Server    ServerConfig `json:"server"`
	Sentinels string       `json:"sentinels" env:"MARVEL_SENTINELS"`
	Debug     struct {
		PrettyJson bool `json:"prettyJson" env:"MARVEL_PRETTY_JSON"`
	} `json:"debug"`
}

type MarvelConfig struct {
	PublicKey  string `json:"public" env:"MARVEL_PUBLIC_KEY"`
	PrivateKey string `json:"private" env:"MARVEL_PRIVATE_KEY"`
	BaseUrl    string `json:"baseUrl" env:"MARVEL_BASE_URL"`
	// Timeout in seconds.
	Timeout int `json:"timeout" env:"MARVEL_TIMEOUT"`
}

type CacheConfig struct {
	Database string `json:"database" env:"MARVEL_CACHE_DB"`
	// TTL in seconds; negative disables response caching.
	TTL int `json:"ttl" env:"MARVEL_CACHE_TTL"`
}

type ServerConfig struct {
	Listen      string `json:"listen" env:"MARVEL_LISTEN"`
	RequireAuth bool   `json:"requireAuth" env:"MARVEL_REQUIRE_AUTH"`
	PageSize    int    `json:"pageSize" env:"MARVEL_PAGE_SIZE"`
}

const (
	defaultDbFile   = "data/cache.db"
	defaultListen   = ":8081"
	defaultTTL      = 3600
	defaultTimeout  = 10
	defaultPageSize = 10
)

// loadConfig reads the JSON file when present, then lets .env and the
// process environment override it.
func loadConfig(path string, envFile string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		defer f.Close()
		if err := decodeConfig(f, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("unable to load %s: %w", envFile, err)
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to read environment: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func decodeConfig(f io.ReadSeeker, cfg *Config) error {
	err := json.NewDecoder(f).Decode(cfg)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
			return err
		}
		pos := findPos(bufio.NewReader(f), int(syntaxErr.Offset))
		return fmt.Errorf("unable to decode configuration file (Line: %d, Pos: %d): %w", pos.line, pos.pos, err)
	}
	return err
}

func (cfg *Config) applyDefaults() {
	if cfg.Marvel.BaseUrl == "" {
		cfg.Marvel.BaseUrl = marvel.DefaultBaseURL
	}
	if cfg.Marvel.Timeout <= 0 {
		cfg.Marvel.Timeout = defaultTimeout
	}
	if cfg.Cache.Database == "" {
		cfg.Cache.Database = defaultDbFile
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = defaultTTL
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = defaultListen
	}
	if cfg.Server.PageSize <= 0 {
		cfg.Server.PageSize = defaultPageSize
	}
}

type FilePos struct {
	line int
	pos  int
}

func findPos(file *bufio.Reader, offset int) FilePos {
	p := FilePos{line: 1, pos: offset}
	var lineLen int
	for line, err := file.ReadBytes('\n'); len(line) > 0 && err == nil; line, err = file.ReadBytes('\n') {
		if p.pos < len(line) {
			return p
		}
		lineLen += len(line)
		if line[len(line)-1] == '\n' {
			p.line += 1
			p.pos -= lineLen
			lineLen = 0
		}
	}
	return p
}
