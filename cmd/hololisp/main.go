package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/holodome/hololisp"
)

type args struct {
	inputPath   *string
	configPath  *string
	interactive *bool
}

func readArgs() *args {
	a := &args{
		inputPath:   flag.String("input", "", "Path to a hololisp source file to run"),
		configPath:  flag.String("config", "", "Path to a YAML file overriding VM defaults"),
		interactive: flag.Bool("interactive", false, "Drop into a REPL even if -input is given"),
	}
	flag.Parse()
	return a
}

// fileConfig is the YAML-serializable subset of hololisp.Config; the
// WriteFn/ErrorFn callbacks have no textual representation, so only
// the numeric/boolean knobs are overridable from a config file.
type fileConfig struct {
	HeapSize        int  `yaml:"heap_size"`
	MinHeapSize     int  `yaml:"min_heap_size"`
	HeapGrowPercent int  `yaml:"heap_grow_percent"`
	MaxCallDepth    int  `yaml:"max_call_depth"`
	StressGC        bool `yaml:"stress_gc"`
}

func loadConfig(path string) (*hololisp.Config, error) {
	cfg := hololisp.NewConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	if fc.HeapSize > 0 {
		cfg.HeapSize = uintptr(fc.HeapSize)
	}
	if fc.MinHeapSize > 0 {
		cfg.MinHeapSize = uintptr(fc.MinHeapSize)
	}
	if fc.HeapGrowPercent > 0 {
		cfg.HeapGrowPercent = fc.HeapGrowPercent
	}
	if fc.MaxCallDepth > 0 {
		cfg.MaxCallDepth = fc.MaxCallDepth
	}
	cfg.StressGC = fc.StressGC
	return cfg, nil
}

func main() {
	a := readArgs()

	cfg, err := loadConfig(*a.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "can't load config:", err)
		os.Exit(1)
	}
	vm := hololisp.MakeVM(cfg)
	defer hololisp.DeleteVM(vm)

	if *a.inputPath != "" {
		source, err := os.ReadFile(*a.inputPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "can't open input file:", err)
			os.Exit(1)
		}
		outcome := hololisp.Interpret(vm, source, *a.inputPath)
		if *a.interactive {
			repl(vm)
			return
		}
		if outcome != hololisp.OutcomeOK {
			os.Exit(1)
		}
		return
	}

	repl(vm)
}

// repl reads one line at a time and interprets it as its own
// translation unit; a form spanning multiple lines (an unterminated
// list) simply reports "unterminated list" rather than prompting for
// continuation; each line stands alone.
func repl(vm *hololisp.VM) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			hololisp.Interpret(vm, []byte(line), "<repl>")
		}
		fmt.Print("> ")
	}
	fmt.Println()
}
