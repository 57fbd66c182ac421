package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imishinist/fe-bench/internal/models"
	"github.com/imishinist/fe-bench/internal/parser"
)

// Duration decodes Go duration strings ("60s", "200ms") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Waits struct {
	ServerReadyTimeout  Duration `yaml:"server_ready_timeout"`
	ServerReadyInterval Duration `yaml:"server_ready_interval"`
	AuditTimeout        Duration `yaml:"audit_timeout"`
	MetricTimeout       Duration `yaml:"metric_timeout"`
	MetricInterval      Duration `yaml:"metric_interval"`
	CloseGrace          Duration `yaml:"close_grace"`
}

type MetricsSpec struct {
	CustomMarks   []string `yaml:"custom_marks"`
	TimingEntries []string `yaml:"timing_entries"`
	ScoreMetrics  []string `yaml:"score_metrics"`
}

// IsScore reports whether a summarized metric is a unitless score.
func (m MetricsSpec) IsScore(name string) bool {
	for _, s := range m.ScoreMetrics {
		if s == name {
			return true
		}
	}
	return false
}

type AuditSpec struct {
	Command     []string `yaml:"command"`
	ChromeFlags []string `yaml:"chrome_flags"`
}

type FlowSpec struct {
	Name   string `yaml:"name"`
	Entry  string `yaml:"entry"`
	Script string `yaml:"script"`
}

// Suite is the benchmark definition: what to build, serve and drive.
type Suite struct {
	Root    string             `yaml:"root"`
	Apps    []models.AppTarget `yaml:"apps"`
	Flows   []FlowSpec         `yaml:"flows"`
	Runs    int                `yaml:"runs"`
	Waits   Waits              `yaml:"waits"`
	Metrics MetricsSpec        `yaml:"metrics"`
	Audit   AuditSpec          `yaml:"audit"`
}

func viteApp(tech, label string, port int) models.AppTarget {
	return models.AppTarget{
		Tech:           tech,
		Label:          label,
		Dir:            tech + "-app",
		Port:           port,
		BuildCommand:   []string{"npm", "run", "build"},
		PreviewCommand: []string{"npm", "run", "preview", "--", "--host", "0.0.0.0", "--port"},
		InstallCommand: []string{"npm", "install"},
	}
}

// DefaultSuite mirrors the three Vite applications and four flows the
// benchmark was designed around.
func DefaultSuite() *Suite {
	return &Suite{
		Root: ".",
		Apps: []models.AppTarget{
			viteApp("react", "React", 5173),
			viteApp("vue", "Vue", 5174),
			viteApp("svelte", "Svelte", 5175),
		},
		Flows: []FlowSpec{
			{Name: "flow-cold-start", Entry: "/", Script: "cold-start"},
			{Name: "flow-items-browse", Entry: "/items", Script: "items-browse"},
			{Name: "flow-search-and-edit", Entry: "/items", Script: "search-and-edit"},
			{Name: "flow-stress", Entry: "/items", Script: "stress"},
		},
		Runs: 3,
		Waits: Waits{
			ServerReadyTimeout:  Duration(60 * time.Second),
			ServerReadyInterval: Duration(time.Second),
			AuditTimeout:        Duration(90 * time.Second),
			MetricTimeout:       Duration(30 * time.Second),
			MetricInterval:      Duration(200 * time.Millisecond),
			CloseGrace:          Duration(500 * time.Millisecond),
		},
		Metrics: MetricsSpec{
			CustomMarks: []string{
				"app_start",
				"first_route_mounted",
				"items_table_first_paint",
				"filter_applied",
				"sort_applied",
				"page_changed",
				"form_submit_success",
			},
			TimingEntries: []string{
				"first-paint",
				"first-contentful-paint",
				"app_start",
				"first_route_mounted",
				"items_table_first_paint",
				"filter_applied",
				"sort_applied",
				"page_changed",
				"form_submit_success",
			},
			ScoreMetrics: []string{"CLS"},
		},
		Audit: AuditSpec{
			Command:     []string{"npx", "--yes", "lighthouse"},
			ChromeFlags: []string{"--headless", "--disable-gpu", "--no-sandbox"},
		},
	}
}

// LoadSuite reads the suite file at path on top of DefaultSuite. A missing
// file yields the defaults. Relative app directories resolve against root,
// and a relative root resolves against the suite file's directory.
func LoadSuite(path string) (*Suite, error) {
	suite := DefaultSuite()
	baseDir := "."

	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to open suite file %s: %w", path, err)
		default:
			defer file.Close()
			if err := parser.ParseYAMLStrict(file, suite); err != nil {
				return nil, fmt.Errorf("suite file %s: %w", path, err)
			}
			baseDir = filepath.Dir(path)
		}
	}

	if !filepath.IsAbs(suite.Root) {
		suite.Root = filepath.Join(baseDir, suite.Root)
	}
	for i := range suite.Apps {
		if !filepath.IsAbs(suite.Apps[i].Dir) {
			suite.Apps[i].Dir = filepath.Join(suite.Root, suite.Apps[i].Dir)
		}
	}
	return suite, nil
}

// Validate checks the suite for configuration mistakes. lookup resolves flow
// script names.
func (s *Suite) Validate(lookup func(string) (models.FlowScript, bool)) error {
	if len(s.Apps) == 0 {
		return fmt.Errorf("suite defines no applications")
	}
	if len(s.Flows) == 0 {
		return fmt.Errorf("suite defines no flows")
	}
	if s.Runs <= 0 {
		return fmt.Errorf("runs must be positive, got %d", s.Runs)
	}

	techs := make(map[string]bool)
	ports := make(map[int]string)
	for _, app := range s.Apps {
		if app.Tech == "" {
			return fmt.Errorf("application without tech id")
		}
		// summary files are named "<tech>-<flow>.csv"
		if strings.Contains(app.Tech, "-") {
			return fmt.Errorf("tech id %q must not contain '-'", app.Tech)
		}
		if techs[app.Tech] {
			return fmt.Errorf("duplicate tech id: %s", app.Tech)
		}
		techs[app.Tech] = true
		if app.Port <= 0 || app.Port > 65535 {
			return fmt.Errorf("%s: invalid port %d", app.Tech, app.Port)
		}
		if other, ok := ports[app.Port]; ok {
			return fmt.Errorf("%s: port %d already assigned to %s", app.Tech, app.Port, other)
		}
		ports[app.Port] = app.Tech
		if len(app.BuildCommand) == 0 || len(app.PreviewCommand) == 0 {
			return fmt.Errorf("%s: build and preview commands are required", app.Tech)
		}
	}

	flows := make(map[string]bool)
	for _, flow := range s.Flows {
		if flow.Name == "" {
			return fmt.Errorf("flow without name")
		}
		if flows[flow.Name] {
			return fmt.Errorf("duplicate flow: %s", flow.Name)
		}
		flows[flow.Name] = true
		if _, ok := lookup(flow.Script); !ok {
			return fmt.Errorf("flow %s: unknown script %q", flow.Name, flow.Script)
		}
	}

	w := s.Waits
	for name, d := range map[string]Duration{
		"server_ready_timeout":  w.ServerReadyTimeout,
		"server_ready_interval": w.ServerReadyInterval,
		"audit_timeout":         w.AuditTimeout,
		"metric_timeout":        w.MetricTimeout,
		"metric_interval":       w.MetricInterval,
		"close_grace":           w.CloseGrace,
	} {
		if d <= 0 {
			return fmt.Errorf("waits.%s must be positive", name)
		}
	}
	if len(s.Audit.Command) == 0 {
		return fmt.Errorf("audit command is required")
	}
	return nil
}
