package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "flowgraph"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.ServiceName != "flowgraph" {
			t.Errorf("expected logging service name to follow name, got %q", cfg.Logging.ServiceName)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "flowgraph", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid development", ServiceConfig{Name: "svc", Environment: "development"}, false, ""},
		{"valid production", ServiceConfig{Name: "svc", Environment: "production"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "invalid"}, true, "config.environment must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCompilerConfig(t *testing.T) {
	var cfg CompilerConfig
	cfg.ApplyDefaults()
	if cfg.DefaultSystem != SystemConductor {
		t.Errorf("expected default system conductor, got %q", cfg.DefaultSystem)
	}
	if len(cfg.AllowedSystems) != 2 {
		t.Errorf("expected two allowed systems, got %v", cfg.AllowedSystems)
	}
	if cfg.BatchWorkers != 4 {
		t.Errorf("expected 4 batch workers, got %d", cfg.BatchWorkers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := CompilerConfig{AllowedSystems: []string{SystemAirflow}, DefaultSystem: SystemConductor, BatchWorkers: 1}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for default system outside allowed set")
	}
}

type testAppConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Compiler      CompilerConfig `yaml:"compiler" mapstructure:"compiler"`
}

func (c *testAppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Compiler.ApplyDefaults()
}

func (c *testAppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	return c.Compiler.Validate()
}

func TestLoadWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: flowgraph
environment: staging
version: "1.0.0"
compiler:
  strict_join: true
  default_system: airflow
  batch_workers: 8
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg testAppConfig
	if err := Load("flowgraph", &cfg, WithConfigFile(configPath), WithEnvFile(filepath.Join(dir, ".env"))); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Name != "flowgraph" {
		t.Errorf("expected name 'flowgraph', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if !cfg.Compiler.StrictJoin {
		t.Error("expected strict_join=true")
	}
	if cfg.Compiler.DefaultSystem != SystemAirflow {
		t.Errorf("expected default system airflow, got %q", cfg.Compiler.DefaultSystem)
	}
	if cfg.Compiler.BatchWorkers != 8 {
		t.Errorf("expected 8 batch workers, got %d", cfg.Compiler.BatchWorkers)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testAppConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("environment: production\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg testAppConfig
	err := Load("nameless", &cfg, WithConfigFile(configPath), WithEnvFile(filepath.Join(dir, ".env")))
	if err == nil || !strings.Contains(err.Error(), "config.name is required") {
		t.Fatalf("expected missing name error, got %v", err)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/flowgraph/config.yml": true,
		".env":                       true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("flowgraph", LoaderConfig{})
	if files.ConfigFile != "./cmd/flowgraph/config.yml" {
		t.Errorf("expected config file at ./cmd/flowgraph/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != ".env" {
		t.Errorf("expected env file .env, got %q", files.EnvFile)
	}
}

func TestResolverServiceNamedFile(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./flowgraph.yaml": true}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("flowgraph", LoaderConfig{})
	if files.ConfigFile != "./flowgraph.yaml" {
		t.Errorf("expected ./flowgraph.yaml, got %q", files.ConfigFile)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }
func (m *mockFS) Getwd() (string, error)    { return "/mock", nil }

func TestGenerateEnvKeyVariants(t *testing.T) {
	variants := generateEnvKeyVariants("COMPILER_STRICT_JOIN")
	want := "compiler.strict_join"
	found := false
	for _, v := range variants {
		if v == want {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q among variants %v", want, variants)
	}

	if got := generateEnvKeyVariants("DEBUG"); len(got) != 1 || got[0] != "debug" {
		t.Errorf("expected [debug], got %v", got)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)

	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/config.yml" {
		t.Errorf("expected config file path, got %q", lc.ConfigFile)
	}
	if lc.EnvFile != "/path/to/.env" {
		t.Errorf("expected env file path, got %q", lc.EnvFile)
	}
}
