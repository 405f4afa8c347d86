package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "visualize":
		if err := visualize(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "discover":
		if err := discover(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("pflow version 1.0.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pflow - process discovery from event logs

Usage:
  pflow <command> [options]

Commands:
  discover   Discover a Petri net from an event log (eST-Miner)
  visualize  Generate SVG visualization of Petri net structure
  help       Show this help message
  version    Show version information

Examples:
  # Discover a process model from an event log
  pflow discover --tau 0.9 --svg net.svg log.csv

  # Visualize a discovered net
  pflow visualize --output structure.svg net.json

For command-specific help, run:
  pflow <command> --help`)
}
