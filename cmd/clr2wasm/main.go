// Command clr2wasm compiles a managed-code PE/CLI image into a Wasm 1.0
// binary module, the way saferwall-pe's pedumper command wraps its parser
// in a small cobra CLI.
package main

import (
	"fmt"
	"log"
	"os"

	kratoslog "github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"

	"github.com/clrwasm/clrwasm/compiler"
)

var (
	outPath string
	verbose bool
)

func compileOne(filename string) error {
	log.Printf("processing %s", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	opts := &compiler.Options{}
	if verbose {
		opts.Logger = kratoslog.NewStdLogger(os.Stderr)
	}
	out, err := compiler.Compile(data, opts)
	if err != nil {
		return fmt.Errorf("compiling %s: %w", filename, err)
	}

	dest := outPath
	if dest == "" {
		dest = filename + ".wasm"
	}
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	log.Printf("wrote %s (%d bytes)", dest, len(out))
	return nil
}

func compile(cmd *cobra.Command, args []string) {
	for _, filename := range args {
		if err := compileOne(filename); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "clr2wasm",
		Short: "Compiles managed CLI images into Wasm modules",
		Long:  "clr2wasm lowers a CLI metadata image's CIL method bodies into a Wasm 1.0 binary module",
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("clr2wasm version 0.1.0")
		},
	}

	var compileCmd = &cobra.Command{
		Use:   "compile",
		Short: "Compile one or more CLI images into Wasm modules",
		Args:  cobra.MinimumNArgs(1),
		Run:   compile,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	compileCmd.Flags().StringVarP(&outPath, "out", "o", "", "output path (defaults to <input>.wasm)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(compileCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
