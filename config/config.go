package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rios0rios0/reposync/domain"
)

const defaultBranchPrefix = "repo-sync/" + domain.SourceRepoToken

// Config is the top-level configuration for reposync.
type Config struct {
	Host         string             `yaml:"host"`  // hosting service, default "github.com"
	Token        string             `yaml:"token"` // Inline, ${ENV_VAR}, or file path
	TokenType    string             `yaml:"tokenType"` // "", "pat", "installation"
	Fork         string             `yaml:"fork"`      // fork owner when using a fork workflow
	Repositories []RepositoryConfig `yaml:"repositories"`
	Files        []FileRuleConfig   `yaml:"files"`
	PR           PRConfig           `yaml:"pr"`
	Git          GitConfig          `yaml:"git"`
	Vars         map[string]string  `yaml:"vars"` // extra template variables
}

// RepositoryConfig names one destination repository. A plain scalar
// "owner/name[@branch]" uses the global file rules; a mapping may carry its
// own rule list.
type RepositoryConfig struct {
	Name  string           `yaml:"name"`
	Files []FileRuleConfig `yaml:"files"`
}

// UnmarshalYAML accepts either a scalar repository name or a full mapping.
func (r *RepositoryConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&r.Name)
	}

	type plain RepositoryConfig
	return value.Decode((*plain)(r))
}

// FileRuleConfig declares one file or directory to sync.
type FileRuleConfig struct {
	Source         string   `yaml:"source"`
	Dest           string   `yaml:"dest"`
	Template       bool     `yaml:"template"`
	Replace        *bool    `yaml:"replace"` // default true
	DeleteOrphaned bool     `yaml:"deleteOrphaned"`
	Exclude        []string `yaml:"exclude"`
}

// PRConfig holds pull-request settings shared by all destinations.
type PRConfig struct {
	BranchPrefix  string   `yaml:"branchPrefix"`
	Overwrite     *bool    `yaml:"overwrite"` // default true
	Title         string   `yaml:"title"`     // optional fixed title override
	Labels        []string `yaml:"labels"`
	Assignees     []string `yaml:"assignees"`
	Reviewers     []string `yaml:"reviewers"`
	TeamReviewers []string `yaml:"teamReviewers"`
	AutoMerge     string   `yaml:"autoMerge"` // "", "merge", "squash", "rebase"
}

// GitConfig holds the identity used for destination commits.
type GitConfig struct {
	UserName  string `yaml:"userName"`
	UserEmail string `yaml:"userEmail"`
}

// SyncTarget pairs one destination repository with its resolved rule list.
type SyncTarget struct {
	Repo  domain.RepoRef
	Rules []domain.FileRule
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// Load reads and parses a configuration file, expanding environment variables
// and resolving token file paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var cfg Config
	if unmarshalErr := yaml.Unmarshal(data, &cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	applyDefaults(&cfg)
	cfg.Token = resolveToken(cfg.Token)

	if validateErr := validate(&cfg); validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	locations := []string{".", ".github", ".config"}
	patterns := []string{
		".reposync.yaml",
		".reposync.yml",
		"reposync.yaml",
		"reposync.yml",
		"sync.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// Overwrite reports whether the working branch is reused across runs.
func (c *PRConfig) OverwriteEnabled() bool {
	return c.Overwrite == nil || *c.Overwrite
}

// Targets resolves the configured repositories into sync targets, expanding
// per-repository rule overrides against the global rule list.
func (c *Config) Targets() ([]SyncTarget, error) {
	targets := make([]SyncTarget, 0, len(c.Repositories))

	for i, repoCfg := range c.Repositories {
		ref, err := domain.ParseRepoRef(c.Host, repoCfg.Name)
		if err != nil {
			return nil, fmt.Errorf("repositories[%d]: %w", i, err)
		}

		ruleCfgs := c.Files
		if len(repoCfg.Files) > 0 {
			ruleCfgs = repoCfg.Files
		}

		rules := make([]domain.FileRule, 0, len(ruleCfgs))
		for _, rc := range ruleCfgs {
			rules = append(rules, rc.toRule())
		}

		targets = append(targets, SyncTarget{Repo: ref, Rules: rules})
	}

	return targets, nil
}

func (rc FileRuleConfig) toRule() domain.FileRule {
	dest := rc.Dest
	if dest == "" {
		dest = rc.Source
	}
	return domain.FileRule{
		Source:         rc.Source,
		Dest:           dest,
		Template:       rc.Template,
		Replace:        rc.Replace == nil || *rc.Replace,
		DeleteOrphaned: rc.DeleteOrphaned,
		Exclude:        rc.Exclude,
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = "github.com"
	}
	if cfg.Token == "" {
		cfg.Token = "${GITHUB_TOKEN}"
	}
	if cfg.PR.BranchPrefix == "" {
		cfg.PR.BranchPrefix = defaultBranchPrefix
	}
	if cfg.Git.UserName == "" {
		cfg.Git.UserName = "reposync[bot]"
	}
	if cfg.Git.UserEmail == "" {
		cfg.Git.UserEmail = "reposync@users.noreply.github.com"
	}
}

// resolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	// Expand ${ENV_VAR} references
	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	// If the resolved value is a path to an existing file, read the token from it
	if info, statErr := os.Stat(resolved); statErr == nil && !info.IsDir() {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// validate checks for required configuration values.
func validate(cfg *Config) error {
	if cfg.Token == "" {
		return errors.New("token is required (set inline, via ${ENV_VAR}, or as file path)")
	}
	if len(cfg.Repositories) == 0 {
		return errors.New("at least one repository must be configured")
	}

	for i, repo := range cfg.Repositories {
		if repo.Name == "" {
			return fmt.Errorf("repositories[%d].name is required", i)
		}
		if len(cfg.Files) == 0 && len(repo.Files) == 0 {
			return fmt.Errorf("repositories[%d] has no file rules (set files globally or per repository)", i)
		}
	}

	for i, rule := range cfg.Files {
		if rule.Source == "" {
			return fmt.Errorf("files[%d].source is required", i)
		}
	}

	switch cfg.PR.AutoMerge {
	case "", "merge", "squash", "rebase":
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedMergeMethod, cfg.PR.AutoMerge)
	}

	switch cfg.TokenType {
	case "", "pat", "installation":
	default:
		return fmt.Errorf("tokenType must be \"pat\" or \"installation\", got %q", cfg.TokenType)
	}

	return nil
}
