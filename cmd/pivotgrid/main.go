package main

import (
	"fmt"
	"os"
)

// ============================================================================
// PIVOTGRID CLI — pivot any CSV, Parquet or Arrow file
// ============================================================================

const version = "0.3.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
