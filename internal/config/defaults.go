package config

// DefaultConfig returns the default build configuration: a single target
// rooted at the current directory, parallel execution with four slots.
func DefaultConfig() *BuildConfig {
	return &BuildConfig{
		Targets: []Target{
			{Name: "app", Path: ".", Type: "app"},
		},
		OutputDir:      "dist",
		SourceMap:      true,
		Parallel:       true,
		MaxConcurrency: 4,
	}
}
