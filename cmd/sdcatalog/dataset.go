package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mmrzaf/sdcatalog/internal/domain"
)

func (c *cli) datasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dataset",
		Aliases: []string{"datasets", "ds"},
		Short:   "Manage dataset locations",
	}

	var format string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every dataset record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			list, err := deps.Catalogue.ListAll(cmd.Context())
			if err != nil {
				return err
			}

			// yaml output is a manifest that "dataset import" accepts.
			var out any = list
			if format == formatYAML {
				m := domain.DatasetManifest{Datasets: make([]domain.Dataset, 0, len(list))}
				for _, ds := range list {
					m.Datasets = append(m.Datasets, *ds)
				}
				out = m
			}
			return render(cmd.OutOrStdout(), format, out, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tNODE\tDISEASE\tPATH")
				for _, ds := range list {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", ds.ID, ds.Node, ds.Disease, ds.Path)
				}
			})
		},
	}
	listCmd.Flags().StringVar(&format, "format", formatTable, "Output format (table|json|yaml)")

	addCmd := &cobra.Command{
		Use:   "add <node> <path> <disease>",
		Short: "Record where a dataset lives",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			ds, err := deps.Catalogue.Insert(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dataset %d recorded for node %s (%s)\n", ds.ID, ds.Node, ds.Disease)
			return nil
		},
	}

	findCmd := &cobra.Command{
		Use:   "find <node> <disease>",
		Short: "Show the first dataset a node holds for a disease",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			ds, err := deps.Catalogue.FindOne(cmd.Context(), args[0], args[1])
			if err != nil {
				if domain.IsNotFound(err) {
					return fmt.Errorf("no dataset found for node %s and disease %s", args[0], args[1])
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ds.Path)
			return nil
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <node> <disease> <path>",
		Short: "Remove one dataset record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			removed, err := deps.Catalogue.DeleteOne(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("dataset '%s' not found", args[2])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dataset '%s' deleted\n", args[2])
			return nil
		},
	}

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of dataset records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			n, err := deps.Catalogue.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	var yes bool
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove every dataset record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			if !yes {
				total, err := deps.Catalogue.Count(cmd.Context())
				if err != nil {
					return err
				}
				if !confirm(cmd, fmt.Sprintf("Delete ALL %d dataset records?", total)) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			n, err := deps.Catalogue.DeleteAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d dataset records\n", n)
			return nil
		},
	}
	purgeCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	importCmd := &cobra.Command{
		Use:   "import <manifest.yaml>",
		Short: "Load dataset records from a YAML manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := readManifest(args[0])
			if err != nil {
				return err
			}
			deps, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer deps.Close()

			n, err := deps.Catalogue.Import(cmd.Context(), manifest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d dataset records\n", n)
			return nil
		},
	}

	cmd.AddCommand(listCmd, addCmd, findCmd, rmCmd, countCmd, purgeCmd, importCmd)
	return cmd
}

func readManifest(path string) (*domain.DatasetManifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	defer f.Close()

	var m domain.DatasetManifest
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
