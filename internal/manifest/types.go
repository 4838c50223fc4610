package manifest

// Pipeline is the root of a pipeline manifest.
type Pipeline struct {
	App  App   `yaml:"app" json:"app"`
	Jobs []Job `yaml:"jobs" json:"jobs"`
}

// App describes the application being released.
type App struct {
	Binary      string   `yaml:"binary" json:"binary"`
	DisplayName string   `yaml:"display_name" json:"display_name"`
	BundleID    string   `yaml:"bundle_id" json:"bundle_id"`
	Comment     string   `yaml:"comment,omitempty" json:"comment,omitempty"`
	Categories  []string `yaml:"categories,omitempty" json:"categories,omitempty"`
	Icon        string   `yaml:"icon" json:"icon"`
	MacIcon     string   `yaml:"mac_icon" json:"mac_icon"`
}

// Job declares one PlatformJob.
type Job struct {
	Platform string            `yaml:"platform" json:"platform"`
	Target   string            `yaml:"target" json:"target"`
	Build    BuildSpec         `yaml:"build" json:"build"`
	Env      map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Tools    []Tool            `yaml:"tools,omitempty" json:"tools,omitempty"`
	Package  PackageSpec       `yaml:"package" json:"package"`
}

// BuildSpec is the opaque native build invocation. Arguments may contain the
// placeholders {target} and {target_dir}.
type BuildSpec struct {
	Command   []string `yaml:"command" json:"command"`
	OutputDir string   `yaml:"output_dir" json:"output_dir"`
}

// Tool is one toolchain entry provisioned before the build.
type Tool struct {
	Name    string            `yaml:"name" json:"name"`
	Kind    string            `yaml:"kind" json:"kind"`
	URL     string            `yaml:"url,omitempty" json:"url,omitempty"`
	SHA256  string            `yaml:"sha256,omitempty" json:"sha256,omitempty"`
	Member  string            `yaml:"member,omitempty" json:"member,omitempty"`
	Target  string            `yaml:"target,omitempty" json:"target,omitempty"`
	Replace map[string]string `yaml:"replace,omitempty" json:"replace,omitempty"`
}

// PackageSpec selects and configures the packager for a job.
type PackageSpec struct {
	Kind             string   `yaml:"kind" json:"kind"`
	ExcludeLibraries []string `yaml:"exclude_libraries,omitempty" json:"exclude_libraries,omitempty"`
	Runtime          string   `yaml:"runtime,omitempty" json:"runtime,omitempty"`
}

// Tool kinds.
const (
	ToolDownload = "download"
	ToolShim     = "shim"
	ToolRequire  = "require"
)

// Package kinds.
const (
	PackageAppImage = "appimage"
	PackageZip      = "zip"
	PackageExe      = "exe"
	PackageDMG      = "dmg"
)

// Job returns the job declared for platform.
func (p *Pipeline) Job(platform string) (*Job, bool) {
	for i := range p.Jobs {
		if p.Jobs[i].Platform == platform {
			return &p.Jobs[i], true
		}
	}
	return nil, false
}

// Tool returns the tool named name.
func (j *Job) Tool(name string) (*Tool, bool) {
	for i := range j.Tools {
		if j.Tools[i].Name == name {
			return &j.Tools[i], true
		}
	}
	return nil, false
}
