package cli

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/crmarques/prismafmt/bridge"
	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/engines"
	clitestkit "github.com/crmarques/prismafmt/internal/cli/testkit"
	"github.com/crmarques/prismafmt/internal/telemetry"
	"github.com/crmarques/prismafmt/server"
)

type testConfigService struct {
	mu         sync.Mutex
	cfg        config.Config
	path       string
	selections []config.Selection
	saved      *config.Config
	savedPath  string
}

func (s *testConfigService) Load(_ context.Context, selection config.Selection) (config.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selections = append(s.selections, selection)
	cfg := s.cfg
	if kind, ok := selection.Overrides["engine.kind"]; ok {
		cfg.Engine.Kind = kind
	}
	if listen, ok := selection.Overrides["server.listen"]; ok {
		cfg.Server.Listen = listen
	}
	if cfg.Engine.Kind == "" {
		cfg.Engine.Kind = config.EngineKindBinary
	}
	return cfg, nil
}

func (s *testConfigService) Save(_ context.Context, path string, cfg config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saved = &cfg
	s.savedPath = path
	return nil
}

func (s *testConfigService) ResolvePath(explicitPath string) (string, error) {
	if strings.TrimSpace(explicitPath) != "" {
		return explicitPath, nil
	}
	return s.path, nil
}

func (s *testConfigService) Validate(context.Context, config.Config) error {
	return nil
}

type testEngine struct {
	closed bool
}

func (e *testEngine) Format(_ context.Context, input string) (string, error) {
	return strings.TrimSpace(input) + "\n", nil
}

func (e *testEngine) Lint(context.Context, string) (string, error) {
	return `[{"start":0,"end":5,"text":"unused","is_warning":true}]`, nil
}

func (e *testEngine) NativeTypes(context.Context, string) (string, error) {
	return `[{"name":"Text"}]`, nil
}

func (e *testEngine) ReferentialActions(context.Context, string) (string, error) {
	return `["Cascade","Restrict"]`, nil
}

func (e *testEngine) PreviewFeatures(context.Context) (string, error) {
	return `["driverAdapters"]`, nil
}

func (e *testEngine) Version(context.Context, string) (string, error) {
	return "22b822189f46ef0dc5c5b503368d1bee01213980", nil
}

func (e *testEngine) Close(context.Context) error {
	e.closed = true
	return nil
}

type testSurfaces struct {
	mu      sync.Mutex
	engine  *testEngine
	configs []config.Config
}

func (s *testSurfaces) factory(_ context.Context, cfg config.Config, _ *telemetry.Providers) (*bridge.Surface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configs = append(s.configs, cfg)
	if s.engine == nil {
		s.engine = &testEngine{}
	}
	return bridge.NewSurface(s.engine)
}

type testInstaller struct {
	cacheDir string
	requests []engines.Request
	verified bool
}

func (i *testInstaller) Download(_ context.Context, request engines.Request) (engines.Result, error) {
	i.requests = append(i.requests, request)
	result := engines.Result{}
	for engine, dir := range request.Engines {
		result[engine] = map[engines.Target]string{}
		for _, target := range request.Targets {
			result[engine][target] = dir + "/" + engines.BinaryName(engine, target)
		}
	}
	return result, nil
}

func (i *testInstaller) Verify(context.Context, string, string) (bool, error) {
	return i.verified, nil
}

func (i *testInstaller) CacheDir() string {
	return i.cacheDir
}

type testTargets struct {
	native engines.Target
}

func (r testTargets) Detect(context.Context) (engines.Target, error) {
	return r.native, nil
}

func (r testTargets) Resolve(_ context.Context, target engines.Target) (engines.Target, error) {
	if target == engines.TargetNative {
		return r.native, nil
	}
	return target, nil
}

type testServer struct {
	addr   string
	served bool
}

func (s *testServer) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (s *testServer) Addr() string {
	return s.addr
}

func (s *testServer) ListenAndServe(context.Context) error {
	s.served = true
	return nil
}

type testServers struct {
	server *testServer
	cfg    config.Server
}

func (s *testServers) factory(_ *bridge.Surface, cfg config.Server, _ *telemetry.Providers) (server.HTTPServer, error) {
	s.cfg = cfg
	s.server = &testServer{addr: cfg.Listen}
	return s.server, nil
}

type testFixture struct {
	configs    *testConfigService
	surfaces   *testSurfaces
	installer  *testInstaller
	targets    testTargets
	servers    *testServers
	deps       Dependencies
	configPath string
}

func newTestFixture(cacheDir string, configPath string) *testFixture {
	fixture := &testFixture{
		configs:    &testConfigService{path: configPath},
		surfaces:   &testSurfaces{},
		installer:  &testInstaller{cacheDir: cacheDir, verified: true},
		targets:    testTargets{native: engines.TargetDebianOpenSSL11},
		servers:    &testServers{},
		configPath: configPath,
	}
	fixture.configs.cfg.Engines.CacheDir = cacheDir
	fixture.configs.cfg.Engines.Version = config.DefaultEnginesVersion
	fixture.deps = Dependencies{
		Configs:    fixture.configs,
		Surfaces:   fixture.surfaces.factory,
		Installers: func(config.Engines) (engines.Installer, error) { return fixture.installer, nil },
		Targets:    fixture.targets,
		Servers:    fixture.servers.factory,
	}
	return fixture
}

func executeForTest(deps Dependencies, stdin string, args ...string) (string, error) {
	return clitestkit.ExecuteCommandForTest(NewRootCommand(deps), stdin, args...)
}

func executeForTestWithStreams(deps Dependencies, stdin string, args ...string) (string, string, error) {
	return clitestkit.ExecuteCommandForTestWithStreams(NewRootCommand(deps), stdin, args...)
}
