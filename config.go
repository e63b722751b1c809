package orrery

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// config holds the internal numerical knobs of the propagator and
// event search. These are not a feature surface (no CLI/file parsing
// is exposed to collaborators) but are loaded lazily, once, guarded
// against concurrent first-use, via viper reading a TOML file whose
// directory is named by an environment variable.
//
// Unlike a deployed binary with a known config directory, this
// library falls back to hardcoded defaults when ORRERY_CONFIG is
// unset or the file can't be read, since it is consumed as a library
// with no deployment-time guarantee of a config file.
type config struct {
	newtonMaxIter int
	newtonTol     float64

	krawczykMaxDepth int
	intervalTol      float64

	defaultLookahead float64
}

func defaultConfig() config {
	return config{
		newtonMaxIter:    50,
		newtonTol:        1e-12,
		krawczykMaxDepth: 64,
		intervalTol:      1e-9,
		defaultLookahead: 1e7,
	}
}

var (
	cfgOnce   sync.Once
	cfgLoaded config
)

// orreryConfig returns the package-wide numerical configuration,
// loading it from ORRERY_CONFIG/conf.toml on first use.
func orreryConfig() config {
	cfgOnce.Do(func() {
		cfgLoaded = loadConfig()
	})
	return cfgLoaded
}

func loadConfig() config {
	cfg := defaultConfig()
	dir := os.Getenv("ORRERY_CONFIG")
	if dir == "" {
		return cfg
	}
	v := viper.New()
	v.SetConfigName("conf")
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Clean(dir))
	if err := v.ReadInConfig(); err != nil {
		return cfg
	}
	if v.IsSet("newton_max_iter") {
		cfg.newtonMaxIter = v.GetInt("newton_max_iter")
	}
	if v.IsSet("newton_tol") {
		cfg.newtonTol = v.GetFloat64("newton_tol")
	}
	if v.IsSet("krawczyk_max_depth") {
		cfg.krawczykMaxDepth = v.GetInt("krawczyk_max_depth")
	}
	if v.IsSet("interval_tol") {
		cfg.intervalTol = v.GetFloat64("interval_tol")
	}
	if v.IsSet("default_lookahead") {
		cfg.defaultLookahead = v.GetFloat64("default_lookahead")
	}
	return cfg
}
