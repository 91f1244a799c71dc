// Command loanrecon extracts and reconciles borrower records from loan documents
package main

import (
	"fmt"
	"os"

	"github.com/gregorydickson/loan-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
