package agent

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Task implementations for the fixed roster. Each is a thin collaborator:
// the orchestrator only depends on the contract, not on what happens in
// here. On dry runs agents stay in-process; otherwise they may drive the
// JS toolchain through the tracked ProcessManager.

var (
	sourceExts = []string{".ts", ".tsx", ".js", ".jsx"}
	docExts    = []string{".md", ".mdx"}
)

var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
}

// scanTarget walks a target directory counting files with one of the given
// extensions. Honors ctx so timed-out attempts stop promptly.
func scanTarget(ctx context.Context, root string, exts []string, match func(path string) bool) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		for _, e := range exts {
			if ext == e {
				if match == nil || match(path) {
					count++
				}
				break
			}
		}
		return nil
	})
	return count, err
}

func typeCheckTask(d Deps) TaskFunc {
	return func(ctx context.Context, rec *Recorder) (map[string]any, error) {
		total := 0
		for i, target := range d.Build.Targets {
			rec.Progress(i*100/len(d.Build.Targets), fmt.Sprintf("checking %s", target.Name))
			n, err := scanTarget(ctx, target.Path, sourceExts, nil)
			if err != nil {
				return nil, fmt.Errorf("scanning %s: %w", target.Name, err)
			}
			rec.AddFiles(n)
			total += n

			if !d.Build.DryRun {
				if _, err := d.Procs.Run(ctx, target.Path, "npx", "tsc", "--noEmit"); err != nil {
					rec.AddErrors(1)
					return nil, fmt.Errorf("type check failed for %s: %w", target.Name, err)
				}
			}
		}
		rec.Progress(100, "type check clean")
		return map[string]any{"checkedFiles": total}, nil
	}
}

func lintTask(d Deps) TaskFunc {
	return func(ctx context.Context, rec *Recorder) (map[string]any, error) {
		total := 0
		for _, target := range d.Build.Targets {
			n, err := scanTarget(ctx, target.Path, sourceExts, nil)
			if err != nil {
				return nil, fmt.Errorf("scanning %s: %w", target.Name, err)
			}
			rec.AddFiles(n)
			total += n

			if !d.Build.DryRun {
				if _, err := d.Procs.Run(ctx, target.Path, "npx", "eslint", "."); err != nil {
					rec.AddErrors(1)
					return nil, fmt.Errorf("lint failed for %s: %w", target.Name, err)
				}
			}
		}
		rec.Progress(100, fmt.Sprintf("linted %d files", total))
		return map[string]any{"lintedFiles": total}, nil
	}
}

func testTask(d Deps) TaskFunc {
	isTestFile := func(path string) bool {
		base := filepath.Base(path)
		return strings.Contains(base, ".test.") || strings.Contains(base, ".spec.")
	}
	return func(ctx context.Context, rec *Recorder) (map[string]any, error) {
		total := 0
		for _, target := range d.Build.Targets {
			n, err := scanTarget(ctx, target.Path, sourceExts, isTestFile)
			if err != nil {
				return nil, fmt.Errorf("scanning %s: %w", target.Name, err)
			}
			rec.AddFiles(n)
			total += n

			if !d.Build.DryRun {
				if _, err := d.Procs.Run(ctx, target.Path, "npm", "test", "--silent"); err != nil {
					rec.AddErrors(1)
					return nil, fmt.Errorf("tests failed for %s: %w", target.Name, err)
				}
			}
		}
		if total == 0 {
			rec.AddWarnings(1)
			rec.Logf("warn", "no test files found in any target")
		}
		rec.Progress(100, fmt.Sprintf("%d test files", total))
		return map[string]any{"testFiles": total}, nil
	}
}

func securityTask(d Deps) TaskFunc {
	lockfiles := []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml"}
	return func(ctx context.Context, rec *Recorder) (map[string]any, error) {
		findings := 0
		for _, target := range d.Build.Targets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			locked := false
			for _, lf := range lockfiles {
				if _, err := os.Stat(filepath.Join(target.Path, lf)); err == nil {
					locked = true
					break
				}
			}
			if !locked {
				rec.AddWarnings(1)
				rec.Logf("warn", "%s: no dependency lockfile, audit skipped", target.Name)
			}

			// Committed env files are the most common secret leak in app repos.
			n, err := scanTarget(ctx, target.Path, []string{".env"}, nil)
			if err != nil {
				return nil, fmt.Errorf("scanning %s: %w", target.Name, err)
			}
			if n > 0 {
				rec.AddWarnings(n)
				rec.Logf("warn", "%s: %d .env file(s) in tree", target.Name, n)
				findings += n
			}
			rec.AddFiles(1)
		}
		rec.Progress(100, "audit complete")
		return map[string]any{"findings": findings}, nil
	}
}

func qualityTask(d Deps) TaskFunc {
	return func(ctx context.Context, rec *Recorder) (map[string]any, error) {
		var files, oversize int
		for _, target := range d.Build.Targets {
			n, err := scanTarget(ctx, target.Path, sourceExts, nil)
			if err != nil {
				return nil, fmt.Errorf("scanning %s: %w", target.Name, err)
			}
			files += n

			// Files above 32KB of source are flagged as maintainability risks.
			big, err := scanTarget(ctx, target.Path, sourceExts, func(path string) bool {
				info, statErr := os.Stat(path)
				return statErr == nil && info.Size() > 32*1024
			})
			if err != nil {
				return nil, err
			}
			oversize += big
		}
		rec.AddFiles(files)
		if oversize > 0 {
			rec.AddWarnings(oversize)
			rec.Logf("warn", "%d oversized source file(s)", oversize)
		}
		rec.Progress(100, "quality signals computed")
		return map[string]any{"files": files, "oversized": oversize}, nil
	}
}

func bundleTask(d Deps) TaskFunc {
	return func(ctx context.Context, rec *Recorder) (map[string]any, error) {
		inputs := 0
		for _, target := range d.Build.Targets {
			n, err := scanTarget(ctx, target.Path, sourceExts, nil)
			if err != nil {
				return nil, fmt.Errorf("scanning %s: %w", target.Name, err)
			}
			inputs += n
		}
		rec.AddFiles(inputs)

		if d.Build.DryRun {
			rec.Progress(100, "dry run: bundle skipped")
			return map[string]any{"inputs": inputs, "skipped": true}, nil
		}

		args := []string{"vite", "build", "--outDir", d.Build.OutputDir}
		if d.Build.SourceMap {
			args = append(args, "--sourcemap")
		}
		if d.Build.Minify {
			args = append(args, "--minify")
		}
		for _, target := range d.Build.Targets {
			rec.Progress(50, fmt.Sprintf("bundling %s", target.Name))
			if _, err := d.Procs.Run(ctx, target.Path, "npx", args...); err != nil {
				rec.AddErrors(1)
				return nil, fmt.Errorf("bundling %s: %w", target.Name, err)
			}
		}
		rec.Progress(100, "bundle written")
		return map[string]any{"inputs": inputs, "outputDir": d.Build.OutputDir}, nil
	}
}

func performanceTask(d Deps) TaskFunc {
	const budgetBytes = 512 * 1024 // per-asset budget
	return func(ctx context.Context, rec *Recorder) (map[string]any, error) {
		var totalBytes int64
		var assets, over int

		err := filepath.WalkDir(d.Build.OutputDir, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if entry.IsDir() {
				return nil
			}
			info, err := entry.Info()
			if err != nil {
				return err
			}
			assets++
			totalBytes += info.Size()
			if info.Size() > budgetBytes {
				over++
				rec.Logf("warn", "asset over budget: %s (%d bytes)", path, info.Size())
			}
			return nil
		})
		if os.IsNotExist(err) {
			// Nothing emitted (dry run); the budget trivially holds.
			rec.Logf("info", "output directory %s not present, skipping", d.Build.OutputDir)
			err = nil
		}
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", d.Build.OutputDir, err)
		}

		rec.AddFiles(assets)
		rec.AddWarnings(over)
		rec.Progress(100, fmt.Sprintf("%d assets, %d over budget", assets, over))
		return map[string]any{"assets": assets, "totalBytes": totalBytes, "overBudget": over}, nil
	}
}

func documentationTask(d Deps) TaskFunc {
	return func(ctx context.Context, rec *Recorder) (map[string]any, error) {
		docs := 0
		for _, target := range d.Build.Targets {
			n, err := scanTarget(ctx, target.Path, docExts, nil)
			if err != nil {
				return nil, fmt.Errorf("scanning %s: %w", target.Name, err)
			}
			docs += n
		}
		rec.AddFiles(docs)
		if docs == 0 {
			rec.AddWarnings(1)
			rec.Logf("warn", "no documentation files found")
		}
		rec.Progress(100, fmt.Sprintf("%d documentation files", docs))
		return map[string]any{"docFiles": docs}, nil
	}
}

func buildTask(d Deps) TaskFunc {
	return func(ctx context.Context, rec *Recorder) (map[string]any, error) {
		built := make([]string, 0, len(d.Build.Targets))
		for i, target := range d.Build.Targets {
			rec.Progress(i*100/len(d.Build.Targets), fmt.Sprintf("building %s", target.Name))
			if !d.Build.DryRun {
				if _, err := d.Procs.Run(ctx, target.Path, "npm", "run", "build"); err != nil {
					rec.AddErrors(1)
					return nil, fmt.Errorf("building %s: %w", target.Name, err)
				}
			}
			built = append(built, target.Name)
			rec.AddFiles(1)
		}
		rec.Progress(100, "build complete")
		return map[string]any{"builtPackages": built}, nil
	}
}

func publishTask(d Deps) TaskFunc {
	return func(ctx context.Context, rec *Recorder) (map[string]any, error) {
		if !d.Build.PublishToNpm {
			rec.Logf("info", "publish flag not set, nothing to do")
			rec.Progress(100, "publish skipped")
			return map[string]any{"publishedPackages": []string{}}, nil
		}
		if !d.Build.DryRun && d.Build.NpmToken == "" {
			return nil, fmt.Errorf("publish requested but no npm token configured")
		}

		published := make([]string, 0, len(d.Build.Targets))
		for _, target := range d.Build.Targets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if d.Build.DryRun {
				rec.Logf("info", "dry run: would publish %s@%s", target.Name, target.Version)
			} else {
				if _, err := d.Procs.Run(ctx, target.Path, "npm", "publish", "--access", "public"); err != nil {
					rec.AddErrors(1)
					return nil, fmt.Errorf("publishing %s: %w", target.Name, err)
				}
			}
			published = append(published, target.Name)
			rec.AddFiles(1)
		}
		rec.Progress(100, fmt.Sprintf("published %d package(s)", len(published)))
		return map[string]any{"publishedPackages": published}, nil
	}
}
