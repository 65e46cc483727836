// Command vibelang runs a single source file and prints its result, the
// way the teacher's own CLI entry point drives one grammar file through
// its pipeline.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"

	"github.com/mrunix00/vibelang"
)

func main() {
	noColor := flag.Bool("no-color", false, "disable colored error output")
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: vibelang [-no-color] <script>")
		os.Exit(64)
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		log.Fatalf("vibelang: %v", err)
	}

	vm := vibelang.NewVM()
	defer vm.Free()

	program, err := vibelang.NewParser(string(source)).Parse()
	if err != nil {
		reportError("syntax error", err)
		os.Exit(65)
	}

	fn, err := vibelang.Compile(vm, program)
	if err != nil {
		reportError("compile error", err)
		os.Exit(65)
	}

	result, err := vm.Interpret(fn)
	if err != nil {
		reportError("runtime error", err)
		os.Exit(70)
	}

	fmt.Println(vibelang.Print(result))
}

func reportError(header string, err error) {
	bold := color.New(color.FgRed, color.Bold)
	bold.Fprintf(os.Stderr, "%s: ", header)
	fmt.Fprintln(os.Stderr, err)
}
