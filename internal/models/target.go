package models

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
)

// AppTarget identifies one candidate application.
type AppTarget struct {
	Tech           string   `yaml:"tech" json:"tech"`
	Label          string   `yaml:"label" json:"label"`
	Dir            string   `yaml:"dir" json:"dir"`
	Port           int      `yaml:"port" json:"port"`
	BuildCommand   []string `yaml:"build" json:"build"`
	PreviewCommand []string `yaml:"preview" json:"preview"`
	InstallCommand []string `yaml:"install" json:"install"`
}

// DisplayName returns the human label, falling back to the tech id.
func (t AppTarget) DisplayName() string {
	if t.Label != "" {
		return t.Label
	}
	return t.Tech
}

// BaseURL is the address the preview server is polled and browsed at.
func (t AppTarget) BaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", t.Port)
}

// ResolvePreviewCommand binds the preview command to the assigned port.
// Every "--port" token is followed by the port; when the command carries no
// such token, "--port <port>" is appended.
func (t AppTarget) ResolvePreviewCommand() []string {
	port := strconv.Itoa(t.Port)
	resolved := make([]string, 0, len(t.PreviewCommand)+2)
	hasPort := false
	for _, arg := range t.PreviewCommand {
		resolved = append(resolved, arg)
		if arg == "--port" {
			resolved = append(resolved, port)
			hasPort = true
		}
	}
	if !hasPort {
		resolved = append(resolved, "--port", port)
	}
	return resolved
}

// ManifestPath is the file whose presence marks the app as checked out.
func (t AppTarget) ManifestPath() string {
	return filepath.Join(t.Dir, "package.json")
}

// FlowScript drives one user journey against a running application.
type FlowScript func(ctx context.Context, page Page, baseURL string) error

// FlowDefinition is one reproducible user journey.
type FlowDefinition struct {
	Name      string
	EntryPath string
	Script    FlowScript
}

// EntryURL is the page the audit is pointed at for this flow.
func (f FlowDefinition) EntryURL(baseURL string) string {
	return baseURL + f.EntryPath
}
