package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/featurestore/pkg/formats/columnar"
	"github.com/ajitpratap0/featurestore/pkg/layout"
)

// featureGroupFlags registers the identity flags of a feature group.
func featureGroupFlags(cmd *cobra.Command, fg *layout.FeatureGroup, withVersion bool) {
	cmd.Flags().StringVar(&fg.Client, "client", "", "Client, e.g. a business unit (required)")
	cmd.Flags().StringVar(&fg.App, "app", "", "Application, e.g. crm (required)")
	cmd.Flags().StringVar(&fg.Entity, "entity", "", "Entity, e.g. user_profile (required)")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("app")
	_ = cmd.MarkFlagRequired("entity")
	if withVersion {
		cmd.Flags().StringVar(&fg.Version, "version", "", "Feature group version, e.g. v0001 (required)")
		_ = cmd.MarkFlagRequired("version")
	}
}

func (a *app) createCommand() *cobra.Command {
	var fg layout.FeatureGroup
	var input, timeColumn, timeUnit string

	cmd := a.command("create", "Create a feature group from the schema of a sample file", cobra.NoArgs,
		func(cmd *cobra.Command, _ []string) error {
			rec, err := readInput(cmd.Context(), input)
			if err != nil {
				return err
			}
			defer rec.Release()

			ok, payload := a.client.CreateFeatureGroup(cmd.Context(), fg, rec, timeColumn, timeUnit)
			if err := outcome(ok, "create"); err != nil {
				return err
			}
			return a.print(payload)
		})

	featureGroupFlags(cmd, &fg, true)
	cmd.Flags().StringVarP(&input, "input", "i", "", "Parquet or CSV file representative of every column (required)")
	cmd.Flags().StringVar(&timeColumn, "time-column", "", "Column holding the epoch event time (required)")
	cmd.Flags().StringVar(&timeUnit, "time-unit", "ms", "Unit of the time column: s, ms, us or ns")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("time-column")
	return cmd
}

func (a *app) appendCommand() *cobra.Command {
	var fg layout.FeatureGroup
	var input string

	cmd := a.command("append", "Append a batch to the daily partitions of a feature group", cobra.NoArgs,
		func(cmd *cobra.Command, _ []string) error {
			rec, err := readInput(cmd.Context(), input)
			if err != nil {
				return err
			}
			defer rec.Release()

			ok, payload := a.client.AppendPartitions(cmd.Context(), fg, rec)
			if err := outcome(ok, "append"); err != nil {
				return err
			}
			return a.print(payload)
		})

	featureGroupFlags(cmd, &fg, true)
	cmd.Flags().StringVarP(&input, "input", "i", "", "Parquet or CSV file to append (required)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func (a *app) registerCommand() *cobra.Command {
	var fg layout.FeatureGroup
	var suffixes []string

	cmd := a.command("register", "Register partitions whose data is already in place", cobra.NoArgs,
		func(cmd *cobra.Command, _ []string) error {
			ok, payload := a.client.RegisterPartitions(cmd.Context(), fg, suffixes)
			if err := outcome(ok, "register"); err != nil {
				return err
			}
			return a.print(payload)
		})

	featureGroupFlags(cmd, &fg, true)
	cmd.Flags().StringSliceVarP(&suffixes, "partition", "p", nil, "Partition as y=YYYY/m=MM/d=DD (repeatable, required)")
	_ = cmd.MarkFlagRequired("partition")
	return cmd
}

func (a *app) registerTableCommand() *cobra.Command {
	var database, table string

	cmd := a.command("register-table <s3-file-url>", "Create a table over existing partitioned Parquet data", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) error {
			db := database
			if db == "" {
				db = a.cfg.Catalog.Database
			}
			ok, params := a.client.RegisterTable(cmd.Context(), db, table, args[0])
			if err := outcome(ok, "register-table"); err != nil {
				return err
			}
			return a.print(params)
		})

	cmd.Flags().StringVar(&database, "database", "", "Catalog database (defaults to catalog.database)")
	cmd.Flags().StringVar(&table, "table", "", "Table name (required)")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func (a *app) dumpCommand() *cobra.Command {
	return a.command("dump <sql>", "Run a query and dump its result as CSV", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) error {
			ok, payload := a.client.DumpQuery(cmd.Context(), args[0])
			if err := outcome(ok, "dump"); err != nil {
				return err
			}
			return a.print(payload)
		})
}

func (a *app) statusCommand() *cobra.Command {
	return a.command("status <query-id>", "Probe a query once", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) error {
			return a.print(a.client.Status(cmd.Context(), args[0]))
		})
}

func (a *app) readCommand() *cobra.Command {
	var output string

	cmd := a.command("read <query-id>", "Wait for a query and print its result as CSV", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) error {
			ok, result := a.client.ReadQueryResult(cmd.Context(), args[0])
			if err := outcome(ok, "read"); err != nil {
				return err
			}
			if result.Record == nil {
				return a.print(result.Report)
			}
			defer result.Record.Release()

			var w io.Writer = a.stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return columnar.WriteCSV(w, result.Record)
		})

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the CSV here instead of stdout")
	return cmd
}

func (a *app) versionsCommand() *cobra.Command {
	var fg layout.FeatureGroup

	cmd := a.command("versions", "List the versions of a feature group", cobra.NoArgs,
		func(cmd *cobra.Command, _ []string) error {
			ok, versions := a.client.ListVersions(cmd.Context(), fg.Client, fg.App, fg.Entity)
			if err := outcome(ok, "versions"); err != nil {
				return err
			}
			return a.print(versions)
		})

	featureGroupFlags(cmd, &fg, false)
	return cmd
}

func versionCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "featurestore v%s\n", version)
			fmt.Fprintf(stdout, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(stdout, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
