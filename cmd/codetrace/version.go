package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"codetrace/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show codetrace build information and supported format versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		return renderVersion(cmd.OutOrStdout(), strings.ToLower(format), version.Current())
	},
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func renderVersion(w io.Writer, format string, info version.Info) error {
	switch format {
	case "pretty":
		_, err := io.WriteString(w, info.Pretty())
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}
