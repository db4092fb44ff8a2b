package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrsinham/dicomharvest/internal/schema"
)

func newFieldsCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the field keywords the built-in schemas use",
		Long: `List the registered field keywords with the level they describe.

Any DICOM dictionary keyword is accepted by --fields and --meta-fields. FileMeta
keywords are read from the file meta group whichever list declares them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range schema.KnownFields() {
				info, err := schema.LookupField(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "%-28s %s\n", info.Name, info.Scope)
			}
			return nil
		},
	}
}
