package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/mod/modfile"

	"github.com/napolitain/selfprofile/internal/config"
	"github.com/napolitain/selfprofile/internal/rewrite"
)

const selfprofileModule = "github.com/napolitain/selfprofile"

func hotCmd(v *viper.Viper) *cobra.Command {
	c := &cobra.Command{
		Use:   "hot [flags] <dir> [args...]",
		Short: "Instrument a Go main package in a temporary copy, build it and run it",
		Long: `hot copies the module containing <dir> to a temporary directory, routes the
main function of the package in <dir> through the counter wrapper, builds it and
runs it with args. The sources on disk are not modified.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			code, err := runHot(cfg, args[0], args[1:])
			if err != nil {
				return err
			}
			if code != 0 {
				return exitStatus(code)
			}
			return nil
		},
	}
	c.Flags().SetInterspersed(false)
	c.Flags().String(config.KeyRoot, "", "local selfprofile checkout to build against (default: the installed version)")
	return c
}

// runHot instruments the target in a temporary copy, compiles, and executes it
func runHot(cfg config.Config, target string, args []string) (int, error) {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return 0, fmt.Errorf("resolve target: %w", err)
	}
	info, err := os.Stat(absTarget)
	if err != nil {
		return 0, fmt.Errorf("stat target: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("target must be a directory containing a Go main package")
	}

	moduleRoot, err := findModuleRoot(absTarget)
	if err != nil {
		return 0, err
	}

	tempDir, err := os.MkdirTemp("", "selfprofile-*")
	if err != nil {
		return 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	relTarget, err := filepath.Rel(moduleRoot, absTarget)
	if err != nil {
		return 0, fmt.Errorf("relative path: %w", err)
	}

	dep, err := resolveDependency(cfg.Root)
	if err != nil {
		return 0, err
	}
	instrumented, err := copyAndInstrumentModule(moduleRoot, tempDir, relTarget, dep)
	if err != nil {
		return 0, fmt.Errorf("instrument module: %w", err)
	}
	if instrumented == 0 {
		return 0, fmt.Errorf("no main function found in %s", target)
	}

	binaryName := "selfprofile-binary"
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}
	binaryPath := filepath.Join(tempDir, binaryName)
	if err := buildInstrumented(filepath.Join(tempDir, relTarget), binaryPath); err != nil {
		return 0, fmt.Errorf("build: %w", err)
	}

	return runBinary(binaryPath, args, hotEnv(cfg))
}

// dependency is how the instrumented module reaches this module.
type dependency struct {
	version string
	// dir is a local checkout used through a replace directive.
	dir string
}

func resolveDependency(root string) (dependency, error) {
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return dependency{}, fmt.Errorf("resolve root: %w", err)
		}
		if _, err := os.Stat(filepath.Join(abs, "go.mod")); err != nil {
			return dependency{}, fmt.Errorf("root %s is not a module: %w", root, err)
		}
		return dependency{version: "v0.0.0", dir: abs}, nil
	}

	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Path == selfprofileModule {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			return dependency{version: v}, nil
		}
	}
	return dependency{}, fmt.Errorf("unable to locate the selfprofile module; pass --root or set SELFPROFILE_ROOT to a local checkout")
}

// hotEnv hands the resolved settings to the instrumented program, which reads
// them back through interpose.Main.
func hotEnv(cfg config.Config) []string {
	env := []string{
		config.EnvPrefix + "_STATUS=" + cfg.Status,
		config.EnvPrefix + "_FORMAT=" + string(cfg.Format),
		fmt.Sprintf("%s_QUIET=%t", config.EnvPrefix, cfg.Quiet),
	}
	if cfg.Debug {
		env = append(env, config.EnvPrefix+"_DEBUG=true")
	}
	return env
}

func findModuleRoot(dir string) (string, error) {
	for d := dir; ; d = filepath.Dir(d) {
		if _, err := os.Stat(filepath.Join(d, "go.mod")); err == nil {
			return d, nil
		}
		if parent := filepath.Dir(d); parent == d {
			return "", fmt.Errorf("no go.mod found for %s", dir)
		}
	}
}

// copyAndInstrumentModule copies the module to tempDir, instruments the Go
// files of the target package and points go.mod at this module. It returns
// the number of files instrumented.
func copyAndInstrumentModule(moduleRoot, tempDir, relTarget string, dep dependency) (int, error) {
	instrumented := 0

	err := filepath.WalkDir(moduleRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(moduleRoot, path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(tempDir, rel)

		if d.IsDir() {
			if rel != "." && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return os.MkdirAll(destPath, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		switch {
		case rel == "go.mod":
			content, err = instrumentGoMod(content, moduleRoot, dep)
			if err != nil {
				return fmt.Errorf("instrument go.mod: %w", err)
			}
		case filepath.Dir(rel) == relTarget && strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go"):
			var changed bool
			content, changed, err = rewrite.Source(path, content, false)
			if err != nil {
				return err
			}
			if changed {
				logrus.WithField("file", rel).Debug("instrumented")
				instrumented++
			}
		}

		return os.WriteFile(destPath, content, 0644)
	})
	return instrumented, err
}

// skipDir reports whether a directory is left out of module walks. The go
// tool ignores all of them when building.
func skipDir(base string) bool {
	return base == "vendor" || base == "testdata" ||
		strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_")
}

// instrumentGoMod adds the selfprofile requirement to go.mod and makes local
// replace directives absolute so they survive the move to a temp dir.
func instrumentGoMod(content []byte, moduleRoot string, dep dependency) ([]byte, error) {
	mod, err := modfile.Parse("go.mod", content, nil)
	if err != nil {
		return nil, err
	}

	for _, rep := range mod.Replace {
		if rep.New.Version != "" || filepath.IsAbs(rep.New.Path) || !isLocalPath(rep.New.Path) {
			continue
		}
		abs := filepath.Join(moduleRoot, rep.New.Path)
		if err := mod.AddReplace(rep.Old.Path, rep.Old.Version, abs, ""); err != nil {
			return nil, err
		}
	}

	// The selfprofile module itself needs nothing added.
	if mod.Module != nil && mod.Module.Mod.Path == selfprofileModule {
		return mod.Format()
	}

	if !hasRequire(mod, selfprofileModule) {
		if err := mod.AddRequire(selfprofileModule, dep.version); err != nil {
			return nil, err
		}
	}
	if dep.dir != "" {
		if err := mod.AddReplace(selfprofileModule, "", dep.dir, ""); err != nil {
			return nil, err
		}
	}
	return mod.Format()
}

func hasRequire(mod *modfile.File, path string) bool {
	for _, r := range mod.Require {
		if r.Mod.Path == path {
			return true
		}
	}
	return false
}

// isLocalPath reports whether a replace target is a filesystem path rather
// than a module path.
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") || p == "." || p == ".."
}

// buildInstrumented resolves the new requirement and compiles the package.
func buildInstrumented(targetDir, outputPath string) error {
	for _, args := range [][]string{
		{"mod", "tidy"},
		{"build", "-o", outputPath, "."},
	} {
		var stderr bytes.Buffer
		cmd := exec.Command("go", args...)
		cmd.Dir = targetDir
		cmd.Stdout = os.Stderr
		cmd.Stderr = &stderr

		logrus.WithField("dir", targetDir).Debugf("go %s", strings.Join(args, " "))
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("go %s: %w\n%s", args[0], err, stderr.String())
		}
	}
	return nil
}
