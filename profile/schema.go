package profile

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/quazardous/qdadm-go/internal/ctxlog"
)

// fileRoot mirrors the top-level schema of a profile file. There is no
// remain body: unknown attributes and blocks surface as decode
// diagnostics with file positions.
type fileRoot struct {
	LogLevel  string         `hcl:"log_level,optional"`
	LogFormat string         `hcl:"log_format,optional"`
	Kernel    *kernelBlock   `hcl:"kernel,block"`
	Modules   []*moduleBlock `hcl:"module,block"`
}

type kernelBlock struct {
	Version string `hcl:"version,optional"`
}

type moduleBlock struct {
	Name     string        `hcl:"name,label"`
	Enabled  *bool         `hcl:"enabled,optional"`
	Priority *int          `hcl:"priority,optional"`
	Options  *optionsBlock `hcl:"options,block"`
}

// optionsBlock defers decoding of the option attributes; their names are
// free-form per module.
type optionsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// mergeFile parses one file and folds its settings into the profile.
// Scalars overwrite, module blocks merge field-wise with options merged
// per key, so the last file to set something wins.
func (p *Profile) mergeFile(ctx context.Context, file string) error {
	ctxlog.FromContext(ctx).Debug("Loading profile file.", "path", file)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(file)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode profile file %s: %w", file, diags)
	}

	if root.LogLevel != "" {
		p.LogLevel = root.LogLevel
	}
	if root.LogFormat != "" {
		p.LogFormat = root.LogFormat
	}
	if root.Kernel != nil && root.Kernel.Version != "" {
		if _, err := semver.NewVersion(root.Kernel.Version); err != nil {
			return fmt.Errorf("invalid kernel version %q in %s: %w", root.Kernel.Version, file, err)
		}
		p.Version = root.Kernel.Version
	}

	for _, block := range root.Modules {
		if err := p.mergeModule(block, file); err != nil {
			return err
		}
	}
	return nil
}

func (p *Profile) mergeModule(block *moduleBlock, file string) error {
	var opts map[string]any
	if block.Options != nil {
		decoded, err := decodeOptions(block.Options.Body)
		if err != nil {
			return fmt.Errorf("module %q options in %s: %w", block.Name, file, err)
		}
		opts = decoded
	}

	m, ok := p.modules[block.Name]
	if !ok {
		m = &ModuleProfile{Name: block.Name}
		p.modules[block.Name] = m
		p.order = append(p.order, block.Name)
	}

	if block.Enabled != nil {
		m.Enabled = block.Enabled
	}
	if block.Priority != nil {
		m.Priority = block.Priority
	}
	m.Options = mergeOptions(m.Options, opts)
	return nil
}
