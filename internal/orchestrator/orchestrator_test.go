package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmr-tortoise/vulx/internal/config"
	"github.com/mmr-tortoise/vulx/internal/model"
	"github.com/mmr-tortoise/vulx/internal/port"
)

// recorder collects the order in which collaborators are invoked.
type recorder struct {
	calls []string
}

type fakeProvisioner struct {
	rec *recorder
	err error
}

func (f *fakeProvisioner) Provision(context.Context) error {
	f.rec.calls = append(f.rec.calls, "provision")
	return f.err
}

type fakeAllocator struct {
	rec   *recorder
	lease model.PortLease
	err   error
}

func (f *fakeAllocator) Allocate(_ context.Context, preferred int) (model.PortLease, error) {
	f.rec.calls = append(f.rec.calls, "allocate:"+strconv.Itoa(preferred))
	return f.lease, f.err
}

type fakeRunner struct {
	rec      *recorder
	composed []model.ComposedCommand
	commands []model.Command
	err      error
}

func (f *fakeRunner) Run(_ context.Context, cc model.ComposedCommand) error {
	f.rec.calls = append(f.rec.calls, "run:"+cc.Mode.String())
	f.composed = append(f.composed, cc)
	return f.err
}

func (f *fakeRunner) RunCommand(_ context.Context, c model.Command) error {
	f.rec.calls = append(f.rec.calls, "exec:"+c.Program)
	f.commands = append(f.commands, c)
	return f.err
}

// fixture bundles an Orchestrator with its fakes.
type fixture struct {
	orch   *Orchestrator
	rec    *recorder
	prov   *fakeProvisioner
	ports  *fakeAllocator
	runner *fakeRunner
	out    *bytes.Buffer
	paths  config.Paths
	cfg    *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		CacheDir:       ".cache",
		ConfigSource:   "vulmix.config.ts",
		DistDir:        "_dist",
		DependencyDir:  "node_modules",
		PreferredPort:  3000,
		PortProbeLimit: 100,
		Checker:        "tsc",
		Bundler:        "mix",
		Server:         "npx http-server",
	}
	paths, err := config.NewPaths(t.TempDir(), cfg)
	require.NoError(t, err)

	rec := &recorder{}
	f := &fixture{
		rec:    rec,
		prov:   &fakeProvisioner{rec: rec},
		ports:  &fakeAllocator{rec: rec, lease: model.PortLease{Port: 3000, Preferred: 3000}},
		runner: &fakeRunner{rec: rec},
		out:    &bytes.Buffer{},
		paths:  paths,
		cfg:    cfg,
	}
	f.orch = New(Deps{
		Config:      cfg,
		Paths:       paths,
		Provisioner: f.prov,
		Ports:       f.ports,
		Runner:      f.runner,
		Out:         f.out,
		Logger:      zap.NewNop(),
		Version:     "1.0.0",
	})
	return f
}

// TestDispatch_Sequences pins the component order for every verb.
func TestDispatch_Sequences(t *testing.T) {
	tests := []struct {
		verb  model.Verb
		calls []string
	}{
		{model.VerbPrepare, []string{"provision"}},
		{model.VerbDev, []string{"provision", "allocate:3000", "run:hot"}},
		{model.VerbProd, []string{"provision", "run:prod"}},
		{model.VerbServe, []string{"allocate:3000", "run:serve"}},
		{model.VerbUpgrade, []string{"exec:npm"}},
		{model.VerbClean, nil},
		{model.VerbUnknown, nil},
	}

	for _, tt := range tests {
		t.Run(tt.verb.String(), func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.orch.Dispatch(context.Background(), tt.verb, DispatchOptions{}))
			assert.Equal(t, tt.calls, f.rec.calls)
		})
	}
}

// TestDev_UsesLeasedPort verifies that the allocated port, not the
// preferred one, reaches the composed command.
func TestDev_UsesLeasedPort(t *testing.T) {
	f := newFixture(t)
	f.ports.lease = model.PortLease{Port: 3001, Preferred: 3000}

	require.NoError(t, f.orch.Dispatch(context.Background(), model.VerbDev, DispatchOptions{}))

	require.Len(t, f.runner.composed, 1)
	assert.Contains(t, f.runner.composed[0].Steps[0].Args, "--port=3001")
	assert.Contains(t, f.runner.composed[0].Steps[0].Args, "--mix-config="+f.paths.BundlerConfigFile)
}

// TestDev_PortInUse runs dev against a real allocator with the preferred
// port bound by another listener.
func TestDev_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port
	if busy > 65000 {
		t.Skip("ephemeral port too close to the top of the range")
	}

	f := newFixture(t)
	f.cfg.PreferredPort = busy
	f.orch.ports = port.NewAllocator(port.NewScanner(), 100)

	require.NoError(t, f.orch.Dispatch(context.Background(), model.VerbDev, DispatchOptions{}))

	require.Len(t, f.runner.composed, 1)
	args := f.runner.composed[0].Steps[0].Args
	assert.NotContains(t, args, "--port="+strconv.Itoa(busy))

	var found bool
	for _, a := range args {
		if len(a) > len("--port=") && a[:len("--port=")] == "--port=" {
			p, err := strconv.Atoi(a[len("--port="):])
			require.NoError(t, err)
			assert.Greater(t, p, busy)
			found = true
		}
	}
	assert.True(t, found, "hot command must carry a port flag")
}

// TestServe_ChainsServer verifies the serve pipeline.
func TestServe_ChainsServer(t *testing.T) {
	f := newFixture(t)
	f.ports.lease = model.PortLease{Port: 3005, Preferred: 3000}

	require.NoError(t, f.orch.Serve(context.Background()))

	require.Len(t, f.runner.composed, 1)
	cc := f.runner.composed[0]
	require.Len(t, cc.Steps, 2)
	assert.Equal(t, "npx", cc.Steps[1].Program)
	assert.Contains(t, cc.Steps[1].Args, f.paths.DistDir)
	assert.Contains(t, cc.Steps[1].Args, "http://localhost:3005?")
}

// TestProvisionFailure_StopsBuild verifies that no build runs after a
// provisioning failure.
func TestProvisionFailure_StopsBuild(t *testing.T) {
	for _, verb := range []model.Verb{model.VerbDev, model.VerbProd, model.VerbPrepare} {
		t.Run(verb.String(), func(t *testing.T) {
			f := newFixture(t)
			f.prov.err = model.NewCLIError(model.ExitProvisionFailed, "tsc failed")

			err := f.orch.Dispatch(context.Background(), verb, DispatchOptions{})
			require.Error(t, err)
			assert.Equal(t, int(model.ExitProvisionFailed), model.ExitCodeOf(err))
			assert.Equal(t, []string{"provision"}, f.rec.calls)
			assert.Empty(t, f.runner.composed)
		})
	}
}

// TestPortFailure_StopsBuild verifies that no command is composed without a
// port.
func TestPortFailure_StopsBuild(t *testing.T) {
	f := newFixture(t)
	f.ports.err = model.NewCLIError(model.ExitPortAllocationFailed, "no free port")

	err := f.orch.Dispatch(context.Background(), model.VerbServe, DispatchOptions{})
	require.Error(t, err)
	assert.Equal(t, int(model.ExitPortAllocationFailed), model.ExitCodeOf(err))
	assert.Empty(t, f.runner.composed)
}

// TestBuildFailure_PropagatesStatus verifies that the child's exit status
// is surfaced unchanged.
func TestBuildFailure_PropagatesStatus(t *testing.T) {
	f := newFixture(t)
	f.runner.err = &model.BuildError{Command: model.Command{Program: "mix"}, ExitCode: 5}

	err := f.orch.Dispatch(context.Background(), model.VerbProd, DispatchOptions{})
	require.Error(t, err)
	assert.Equal(t, 5, model.ExitCodeOf(err))
}

// TestBanner verifies that build verbs print the banner and prepare does
// not.
func TestBanner(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Dispatch(context.Background(), model.VerbProd, DispatchOptions{}))
	assert.Contains(t, f.out.String(), "Vulmix 1.0.0")

	f = newFixture(t)
	require.NoError(t, f.orch.Dispatch(context.Background(), model.VerbPrepare, DispatchOptions{}))
	assert.Empty(t, f.out.String())
}

// TestBanner_AfterSetup verifies that the banner is only printed once the
// workspace and the port are in place.
func TestBanner_AfterSetup(t *testing.T) {
	t.Run("provision failure", func(t *testing.T) {
		f := newFixture(t)
		f.prov.err = model.NewCLIError(model.ExitProvisionFailed, "tsc failed")

		require.Error(t, f.orch.Dispatch(context.Background(), model.VerbDev, DispatchOptions{}))
		assert.Empty(t, f.out.String())
	})

	t.Run("port failure", func(t *testing.T) {
		f := newFixture(t)
		f.ports.err = model.NewCLIError(model.ExitPortAllocationFailed, "no free port")

		require.Error(t, f.orch.Dispatch(context.Background(), model.VerbServe, DispatchOptions{}))
		assert.Empty(t, f.out.String())
	})

	t.Run("printed before the tools run", func(t *testing.T) {
		f := newFixture(t)
		var bannerAtRun string
		f.orch.runner = runFunc(func(cc model.ComposedCommand) error {
			bannerAtRun = f.out.String()
			return nil
		})

		require.NoError(t, f.orch.Dispatch(context.Background(), model.VerbDev, DispatchOptions{}))
		assert.Equal(t, "Vulmix 1.0.0\n", bannerAtRun)
	})
}

// runFunc adapts a function to the Runner interface.
type runFunc func(cc model.ComposedCommand) error

func (f runFunc) Run(_ context.Context, cc model.ComposedCommand) error { return f(cc) }

func (f runFunc) RunCommand(context.Context, model.Command) error { return nil }

// TestDispatch_Unknown verifies the informational usage output.
func TestDispatch_Unknown(t *testing.T) {
	f := newFixture(t)

	err := f.orch.Dispatch(context.Background(), model.ParseVerb("build"), DispatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Invalid command. You can use: vulx dev|prod|serve|prepare|upgrade|clean\n", f.out.String())
	assert.Empty(t, f.rec.calls)
}

// TestUpgrade_DetectsPackageManager verifies lockfile-based detection.
func TestUpgrade_DetectsPackageManager(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.paths.Root, "pnpm-lock.yaml"), nil, 0644))

	require.NoError(t, f.orch.Upgrade(context.Background()))

	require.Len(t, f.runner.commands, 1)
	assert.Equal(t, []string{"pnpm", "add", "--save-dev", "vulmix@preview"}, f.runner.commands[0].Tokens())
}

// TestUpgrade_ManifestField verifies that packageManager in package.json
// takes precedence.
func TestUpgrade_ManifestField(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.paths.Manifest,
		[]byte(`{"packageManager": "yarn@3.6.1", "devDependencies": {"vulmix": "0.0.2"}}`), 0644))

	require.NoError(t, f.orch.Upgrade(context.Background()))

	require.Len(t, f.runner.commands, 1)
	assert.Equal(t, []string{"yarn", "add", "--dev", "vulmix@preview"}, f.runner.commands[0].Tokens())
}

// TestUpgrade_ConfiguredCommand verifies the upgrade override.
func TestUpgrade_ConfiguredCommand(t *testing.T) {
	f := newFixture(t)
	f.cfg.Upgrade = "bun add -d vulmix@preview"

	require.NoError(t, f.orch.Upgrade(context.Background()))

	require.Len(t, f.runner.commands, 1)
	assert.Equal(t, []string{"bun", "add", "-d", "vulmix@preview"}, f.runner.commands[0].Tokens())
}

func TestUpgrade_MalformedManifest(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.paths.Manifest, []byte(`{"name": `), 0644))

	err := f.orch.Upgrade(context.Background())
	require.Error(t, err)
	assert.True(t, model.HasCode(err, model.ExitConfigError))
	assert.Empty(t, f.runner.commands)
}

// TestClean_RemovesBoth verifies that clean removes the workspace and the
// dependency directory.
func TestClean_RemovesBoth(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Join(f.paths.CacheDir, "types"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(f.paths.DependencyDir, "vue"), 0755))
	keep := filepath.Join(f.paths.Root, "vulmix.config.ts")
	require.NoError(t, os.WriteFile(keep, []byte("export default {}"), 0644))

	require.NoError(t, f.orch.Dispatch(context.Background(), model.VerbClean, DispatchOptions{}))

	assert.NoDirExists(t, f.paths.CacheDir)
	assert.NoDirExists(t, f.paths.DependencyDir)
	assert.FileExists(t, keep)
}

// TestClean_Missing verifies that cleaning an already clean root succeeds.
func TestClean_Missing(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.orch.Clean(context.Background(), false))
}

// TestClean_ProtectedFile verifies that removal errors surface without
// --force and are suppressed with it.
func TestClean_ProtectedFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	f := newFixture(t)
	locked := filepath.Join(f.paths.CacheDir, "types")
	require.NoError(t, os.MkdirAll(locked, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(locked, "env.d.ts"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(f.paths.DependencyDir, 0755))
	require.NoError(t, os.Chmod(locked, 0555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	err := f.orch.Clean(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, int(model.ExitCleanFailed), model.ExitCodeOf(err))
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.DirExists(t, f.paths.DependencyDir, "later steps are skipped after a failure")

	err = f.orch.Clean(context.Background(), true)
	assert.NoError(t, err)
	assert.NoDirExists(t, f.paths.DependencyDir, "force continues past the failing step")
}

// TestClean_RemovalErrors drives the failure path through an injected
// remover so it does not depend on file permissions.
func TestClean_RemovalErrors(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.paths.CacheDir, 0755))
	require.NoError(t, os.MkdirAll(f.paths.DependencyDir, 0755))

	var removed []string
	f.orch.removeAll = func(path string) error {
		if path == f.paths.CacheDir {
			return &os.PathError{Op: "unlinkat", Path: path, Err: syscall.EACCES}
		}
		removed = append(removed, path)
		return os.RemoveAll(path)
	}

	err := f.orch.Clean(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, int(model.ExitCleanFailed), model.ExitCodeOf(err))
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.Contains(t, err.Error(), f.paths.CacheDir)
	assert.Empty(t, removed, "later steps are skipped after a failure")
	assert.DirExists(t, f.paths.DependencyDir)

	require.NoError(t, f.orch.Clean(context.Background(), true))
	assert.Equal(t, []string{f.paths.DependencyDir}, removed)
	assert.NoDirExists(t, f.paths.DependencyDir, "force continues past the failing step")
	assert.DirExists(t, f.paths.CacheDir)
}
