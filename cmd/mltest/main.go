// mltest compiles every Micro-language program matching a glob, runs it in
// the simulator against a fixed set of stdin inputs and compares the results
// with golden JSON files kept next to the sources.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/microlang/mlc/pkg/compiler"
	"github.com/microlang/mlc/pkg/config"
	"github.com/microlang/mlc/pkg/sim"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

type TestRun struct {
	Name   string    `json:"name"`
	Input  string    `json:"input,omitempty"`
	Result Execution `json:"result"`
}

type TargetResult struct {
	Compile Execution `json:"compile"`
	Runs    []TestRun `json:"runs"`
}

type FileTestResult struct {
	File    string        `json:"file"`
	Status  string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string        `json:"message,omitempty"`
	Diff    string        `json:"diff,omitempty"`
	Golden  *TargetResult `json:"golden,omitempty"`
	Target  *TargetResult `json:"target,omitempty"`
}

var (
	generateGolden = flag.String("generate-golden", "", "Generate a golden .json file for a given source file.")
	testFiles      = flag.String("test-files", "testdata/programs/*.ml", "Glob pattern(s) for files to test (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each simulated run.")
	maxSteps       = flag.Int("max-steps", sim.DefaultMaxSteps, "Instruction budget for each simulated run.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

// stdin fed to every program; read statements consume whitespace-separated ints
var testInputs = map[string]string{
	"no_input": "",
	"small":    "3\n4\n5\n",
	"negative": "-7\n-1\n2\n",
	"zeros":    "0\n0\n0\n",
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *generateGolden != "" {
		handleGenerateGolden(*generateGolden)
		return
	}
	handleRunTestSuite()
}

func goldenPath(sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, name)
	}
	return filepath.Join(filepath.Dir(sourceFile), name)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func handleGenerateGolden(sourceFile string) {
	log.Printf("Generating golden file for %s...\n", sourceFile)
	result := compileAndRun(sourceFile)
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to marshal golden data to JSON: %v\n", cRed, cNone, err)
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, *jsonDir, err)
		}
	}
	out := goldenPath(sourceFile)
	if err := os.WriteFile(out, data, 0644); err != nil {
		log.Fatalf("%s[ERROR]%s Failed to write golden file %s: %v\n", cRed, cNone, out, err)
	}
	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, out)
}

func handleRunTestSuite() {
	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	tasks := make(chan string, len(files))
	results := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				results <- testFile(file)
			}
		}()
	}

	// identical sources are tested once
	seen := make(map[string]string)
	for _, file := range files {
		sum, err := hashFile(file)
		if err != nil {
			results <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if orig, ok := seen[sum]; ok {
			results <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", orig)}
			continue
		}
		seen[sum] = file
		tasks <- file
	}
	close(tasks)
	wg.Wait()
	close(results)

	var all []*FileTestResult
	for r := range results {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })

	printSummary(all)
	writeJSONReport(all)
	for _, r := range all {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			os.Exit(1)
		}
	}
}

func testFile(file string) *FileTestResult {
	data, err := os.ReadFile(goldenPath(file))
	if errors.Is(err, os.ErrNotExist) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: err.Error()}
	}
	var golden TargetResult
	if err := json.Unmarshal(data, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file: %v", err)}
	}
	return compareResults(file, &golden, compileAndRun(file))
}

// compileAndRun never fails: compile and runtime errors are part of the result
func compileAndRun(file string) *TargetResult {
	cfg := config.NewConfig()
	_ = cfg.ApplyFlag("-Wno-all")

	start := time.Now()
	res, err := compileFile(file, cfg)
	compile := Execution{Duration: time.Since(start)}
	if err != nil {
		compile.Stderr, compile.ExitCode = err.Error()+"\n", 1
		return &TargetResult{Compile: compile}
	}

	names := make([]string, 0, len(testInputs))
	for name := range testInputs {
		names = append(names, name)
	}
	sort.Strings(names)

	result := &TargetResult{Compile: compile}
	for _, name := range names {
		input := testInputs[name]
		result.Runs = append(result.Runs, TestRun{Name: name, Input: input, Result: simulate(res, input)})
	}
	return result
}

func compileFile(file string, cfg *config.Config) (*compiler.Result, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return compiler.Compile([]rune(string(content)), nil, cfg)
}

func simulate(res *compiler.Result, input string) Execution {
	var stdout bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	m, err := sim.New(res.Program, strings.NewReader(input), &stdout)
	if err == nil {
		m.MaxSteps = *maxSteps
		err = m.Run(ctx)
	}
	exec := Execution{Stdout: stdout.String(), Duration: time.Since(start)}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, sim.ErrStepLimit):
		exec.TimedOut, exec.ExitCode = true, -1
	case err != nil:
		exec.Stderr, exec.ExitCode = err.Error()+"\n", 1
	}
	return exec
}

func compareResults(file string, golden, target *TargetResult) *FileTestResult {
	var diffs strings.Builder
	fail := func(format string, args ...interface{}) { fmt.Fprintf(&diffs, format, args...) }

	if golden.Compile.ExitCode != target.Compile.ExitCode {
		fail("Compile exit code mismatch:\n  - Golden: %d\n  - Target: %d\n", golden.Compile.ExitCode, target.Compile.ExitCode)
	}
	if golden.Compile.Stderr != target.Compile.Stderr {
		fail("Compile STDERR mismatch:\n%s", cmp.Diff(golden.Compile.Stderr, target.Compile.Stderr))
	}

	runs := make(map[string]TestRun, len(target.Runs))
	for _, r := range target.Runs {
		runs[r.Name] = r
	}
	for _, want := range golden.Runs {
		got, ok := runs[want.Name]
		if !ok {
			fail("Test run '%s' missing in target results.\n", want.Name)
			continue
		}
		if want.Result.ExitCode != got.Result.ExitCode {
			fail("Run '%s' Exit Code mismatch:\n  - Golden: %d\n  - Target: %d\n", want.Name, want.Result.ExitCode, got.Result.ExitCode)
		}
		if want.Result.Stdout != got.Result.Stdout {
			fail("Run '%s' STDOUT mismatch:\n%s", want.Name, cmp.Diff(want.Result.Stdout, got.Result.Stdout))
		}
		if want.Result.Stderr != got.Result.Stderr {
			fail("Run '%s' STDERR mismatch:\n%s", want.Name, cmp.Diff(want.Result.Stderr, got.Result.Stderr))
		}
	}

	if diffs.Len() > 0 {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output or exit code mismatch", Diff: diffs.String(), Golden: golden, Target: target}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "All test cases passed", Golden: golden, Target: target}
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var compileTime, runTime time.Duration
	for _, r := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, r.File, cNone)
		switch r.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, r.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, r.Message)
			fmt.Println(formatDiff(r.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, r.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, r.Message)
		}
		if r.Target == nil {
			continue
		}
		compileTime += r.Target.Compile.Duration
		for _, run := range r.Target.Runs {
			runTime += run.Result.Duration
			if *verbose {
				fmt.Printf("    %-10s %s\n", run.Name, run.Result.Duration)
			}
		}
	}
	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	fmt.Printf("Compiling took %s, simulating took %s.\n", compileTime, runTime)
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		switch trimmed := strings.TrimSpace(line); {
		case strings.HasPrefix(trimmed, "-"):
			sb.WriteString(cRed)
		case strings.HasPrefix(trimmed, "+"):
			sb.WriteString(cGreen)
		}
		sb.WriteString("    " + line + cNone + "\n")
	}
	return sb.String()
}

func writeJSONReport(results []*FileTestResult) {
	byFile := make(map[string]*FileTestResult, len(results))
	for _, r := range results {
		byFile[r.File] = r
	}
	data, err := json.MarshalIndent(byFile, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return
	}
	out := *outputJSON
	if *jsonDir != "" {
		out = filepath.Join(*jsonDir, *outputJSON)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, out, err)
		return
	}
	fmt.Printf("Full test report saved to %s\n", out)
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var all []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			abs, err := filepath.Abs(file)
			if err != nil || seen[abs] {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
				all = append(all, abs)
				seen[abs] = true
			}
		}
	}
	return all, nil
}
