package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/notionstore"
	"github.com/sells-group/enrich-cli/internal/provider"
	"github.com/sells-group/enrich-cli/pkg/notion"
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Browse and import people in the Notion people database",
}

// -- people list --

var peopleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List people and the providers each can be enriched by",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("people"); err != nil {
			return err
		}

		reg := provider.NewDefaultRegistry(cfg.ProviderSettings())
		gw := notionstore.NewGateway(newNotionClient(), notionstore.Databases{People: cfg.Notion.PeopleDB}, reg, nil)

		status, _ := cmd.Flags().GetString("status")
		var (
			people []model.Person
			err    error
		)
		if status != "" {
			people, err = gw.ListPeopleByStatus(ctx, status)
		} else {
			people, err = gw.ListPeople(ctx)
		}
		if err != nil {
			return eris.Wrap(err, "people list")
		}

		if len(people) == 0 {
			fmt.Fprintln(os.Stderr, "No people found.")
			return nil
		}

		formatPeopleList(os.Stdout, people, reg.Enabled())
		return nil
	},
}

// -- people import --

var peopleImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import people from CSV into the Notion people database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		path, _ := cmd.Flags().GetString("csv")
		status, _ := cmd.Flags().GetString("status")

		rows, err := notion.ReadCSVFile(path, notionstore.ImportKeyColumns...)
		if err != nil {
			return eris.Wrap(err, "read csv")
		}

		reg := provider.NewDefaultRegistry(cfg.ProviderSettings())
		w := notionstore.NewWriter(newNotionClient(), notionstore.Databases{People: cfg.Notion.PeopleDB}, reg, nil)

		created, err := notionstore.ImportPeople(ctx, w, rows, status)
		if err != nil {
			return eris.Wrapf(err, "import csv (created %d before failing)", created)
		}

		zap.L().Info("import complete",
			zap.Int("rows", len(rows)),
			zap.Int("created", created),
			zap.String("csv", path),
		)
		return nil
	},
}

func init() {
	peopleListCmd.Flags().String("status", "", "only list people with this status")

	peopleImportCmd.Flags().String("csv", "", "path to CSV file (required)")
	peopleImportCmd.Flags().String("status", string(model.StatusNotStarted), "status given to imported people")
	_ = peopleImportCmd.MarkFlagRequired("csv")

	peopleCmd.AddCommand(peopleListCmd)
	peopleCmd.AddCommand(peopleImportCmd)
	rootCmd.AddCommand(peopleCmd)
}

// eligibleProviders returns the IDs of the providers that can build a job
// input for p.
func eligibleProviders(p model.Person, descriptors []provider.Descriptor) []string {
	var ids []string
	for _, d := range descriptors {
		if _, ok := d.Build(p); ok {
			ids = append(ids, string(d.ID))
		}
	}
	return ids
}

// formatPeopleList writes a tabular list of people to out.
func formatPeopleList(out io.Writer, people []model.Person, descriptors []provider.Descriptor) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMPLOYER\tSTATUS\tPROVIDERS")
	_, _ = fmt.Fprintln(w, "--\t----\t--------\t------\t---------")

	for _, p := range people {
		providers := strings.Join(eligibleProviders(p, descriptors), ",")
		if providers == "" {
			providers = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.ID,
			p.DisplayName(),
			p.Employer,
			p.Status,
			providers,
		)
	}
	_ = w.Flush()
}
