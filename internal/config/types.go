package config

// Target is one buildable package in the workspace.
type Target struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Version string `json:"version,omitempty"`
	Type    string `json:"type,omitempty"` // "app", "library", "component"
}

// BuildConfig is the external input to a build run. Immutable for the
// duration of the run.
type BuildConfig struct {
	Targets        []Target `json:"targets"`
	OutputDir      string   `json:"output_dir"`
	SourceMap      bool     `json:"source_map"`
	Minify         bool     `json:"minify"`
	Parallel       bool     `json:"parallel"`
	MaxConcurrency int      `json:"max_concurrency"`
	FailFast       bool     `json:"fail_fast"`
	Verbose        bool     `json:"verbose"`
	DryRun         bool     `json:"dry_run"`
	PublishToNpm   bool     `json:"publish_to_npm"`
	NpmToken       string   `json:"npm_token,omitempty"`
}
