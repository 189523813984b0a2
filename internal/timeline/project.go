package timeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivlev/slidesync/internal/config"
	"gopkg.in/yaml.v3"
)

const ProjectVersion = "1"

// Project is the on-disk description of one export.
type Project struct {
	Version     string              `yaml:"version"`
	Audio       string              `yaml:"audio"`
	Frequencies string              `yaml:"frequencies,omitempty"`
	Assets      []Asset             `yaml:"assets"`
	Subtitles   []SubtitleLine      `yaml:"subtitles"`
	Render      config.RenderConfig `yaml:"render"`
}

func (p *Project) Validate() error {
	if p.Audio == "" {
		return fmt.Errorf("project: audio source is required")
	}
	if len(p.Assets) == 0 {
		return fmt.Errorf("project: at least one asset is required")
	}
	if err := ValidateAssets(p.Assets); err != nil {
		return err
	}
	if err := ValidateSubtitles(p.Subtitles); err != nil {
		return err
	}
	return p.Render.Validate()
}

// WriteProject writes a project to a YAML file
func WriteProject(p *Project, path string) error {
	if p.Version == "" {
		p.Version = ProjectVersion
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadProject reads a project from a YAML file. Omitted render settings keep
// their defaults and relative sources resolve against the file's directory.
func ReadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	p := Project{Render: config.DefaultRenderConfig()}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	p.Audio = resolve(base, p.Audio)
	p.Frequencies = resolve(base, p.Frequencies)
	p.Render.FontPath = resolve(base, p.Render.FontPath)
	p.Render.BoldFontPath = resolve(base, p.Render.BoldFontPath)
	for i := range p.Assets {
		p.Assets[i].Source = resolve(base, p.Assets[i].Source)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func resolve(base, src string) string {
	if src == "" || filepath.IsAbs(src) || strings.HasPrefix(src, "qr:") ||
		strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	return filepath.Join(base, src)
}
