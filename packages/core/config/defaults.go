package config

// DefaultCacheDir is where the duration cache lives unless overridden.
const DefaultCacheDir = ".fixrun"

// Default returns a config with default values applied.
func Default() *Config {
	return &Config{
		CacheDir: DefaultCacheDir,
	}
}
