// Command dicomharvest flattens the metadata of a labelled DICOM tree into a
// CSV table.
package main

import (
	"fmt"
	"os"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
