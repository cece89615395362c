package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/mod/modfile"

	"github.com/napolitain/selfprofile/internal/rewrite"
)

type instrumentFlags struct {
	write  bool
	remove bool
	dryRun bool
}

func instrumentCmd() *cobra.Command {
	var flags instrumentFlags
	c := &cobra.Command{
		Use:   "instrument [flags] <file.go|dir>",
		Short: "Route a Go program's main through the counter wrapper",
		Long: `instrument renames func main to selfprofileMain and adds

    func main() { interpose.Main(interpose.Func(selfprofileMain)) }

so the program measures itself when run. Directories are walked recursively,
skipping vendor, testdata, hidden directories and _test.go files. Without -w the
rewritten sources are printed on stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return instrumentPath(cmd.OutOrStdout(), args[0], flags)
		},
	}
	c.Flags().BoolVarP(&flags.write, "write", "w", false, "write result to the source files")
	c.Flags().BoolVar(&flags.remove, "remove", false, "remove the instrumentation")
	c.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "only list the files that would change")
	return c
}

func instrumentPath(out io.Writer, target string, flags instrumentFlags) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	var files []string
	if info.IsDir() {
		files, err = goFiles(target)
		if err != nil {
			return err
		}
	} else {
		files = []string{target}
	}

	changed := 0
	for _, path := range files {
		ok, err := processFile(out, path, flags)
		if err != nil {
			return err
		}
		if ok {
			changed++
		}
	}

	logrus.WithFields(logrus.Fields{"files": len(files), "changed": changed}).Debug("instrument done")
	if changed > 0 && flags.write && !flags.remove {
		checkRequirement(target)
	}
	return nil
}

// goFiles lists the non-test Go files under dir.
func goFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func processFile(out io.Writer, path string, flags instrumentFlags) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	result, changed, err := rewrite.Source(path, src, flags.remove)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	switch {
	case flags.dryRun:
		fmt.Fprintln(out, path)
	case flags.write:
		info, err := os.Stat(path)
		if err != nil {
			return false, err
		}
		if err := os.WriteFile(path, result, info.Mode().Perm()); err != nil {
			return false, err
		}
		msg := "instrumented"
		if flags.remove {
			msg = "restored"
		}
		logrus.WithField("file", path).Info(msg)
	default:
		fmt.Fprintf(out, "// %s\n%s", path, result)
	}
	return true, nil
}

// checkRequirement warns when the module of target does not require
// selfprofile yet, since the instrumented sources will not build without it.
func checkRequirement(target string) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	root, err := findModuleRoot(abs)
	if err != nil {
		return
	}
	content, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return
	}
	mod, err := modfile.Parse("go.mod", content, nil)
	if err != nil {
		return
	}
	if mod.Module != nil && mod.Module.Mod.Path == selfprofileModule {
		return
	}
	if !hasRequire(mod, selfprofileModule) {
		logrus.WithField("module", root).Warnf("go.mod does not require %s; run: go get %s", selfprofileModule, selfprofileModule)
	}
}
