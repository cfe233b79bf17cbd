package config

// Default values: port 3000, the `_dist` output directory and the `mix`,
// `tsc` and `http-server` tools, looked up in node_modules/.bin before PATH.
const (
	DefaultCacheDir       = ".cache"
	DefaultConfigSource   = "vulmix.config.ts"
	DefaultDistDir        = "_dist"
	DefaultDependencyDir  = "node_modules"
	DefaultPreferredPort  = 3000
	DefaultPortProbeLimit = 100
	DefaultChecker        = "tsc"
	DefaultBundler        = "mix"
	DefaultServer         = "npx http-server"
)

// Defaults returns the default configuration as koanf key/value pairs.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"cache_dir":        DefaultCacheDir,
		"config_source":    DefaultConfigSource,
		"dist_dir":         DefaultDistDir,
		"dependency_dir":   DefaultDependencyDir,
		"preferred_port":   DefaultPreferredPort,
		"port_probe_limit": DefaultPortProbeLimit,
		"dev_mode":         false,
		"assets_dir":       "",
		"checker":          DefaultChecker,
		"bundler":          DefaultBundler,
		"server":           DefaultServer,
		"upgrade":          "",
	}
}
