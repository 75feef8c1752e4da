package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/referral-labels/internal/config"
	"github.com/referral-labels/internal/export"
	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/model"
)

// filterFlags are the label filters shared by build, preview, export and
// correct.
type filterFlags struct {
	tiers             []string
	search            string
	source            string
	includeDiscovered bool
	logParseErrors    bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.tiers, "tier", nil, "Partner tiers to include (VIP, Warm, Cold, Dormant)")
	cmd.Flags().StringVar(&f.search, "search", "", "Case-insensitive name or address search")
	cmd.Flags().StringVar(&f.source, "source", "all", "Office source: all, partner or discovered")
	cmd.Flags().BoolVar(&f.includeDiscovered, "include-discovered", false, "Include discovered offices with source all")
	cmd.Flags().BoolVar(&f.logParseErrors, "log-parse-errors", false, "Report addresses that could not be parsed")
}

func (f *filterFlags) filters() (labels.Filters, error) {
	src, err := labels.ParseSourceFilter(f.source)
	if err != nil {
		return labels.Filters{}, err
	}
	out := labels.Filters{
		Search:            f.search,
		Source:            src,
		IncludeDiscovered: f.includeDiscovered,
		LogParseErrors:    f.logParseErrors,
	}
	for _, raw := range f.tiers {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			tier, err := model.ParseTier(part)
			if err != nil {
				return labels.Filters{}, err
			}
			out.Tiers = append(out.Tiers, tier)
		}
	}
	return out, nil
}

// exportFlags override the export section of the config.
type exportFlags struct {
	template   string
	nameFormat string
	showTo     bool
}

func (e *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&e.template, "template", "", "Label sheet template (default from config)")
	cmd.Flags().StringVar(&e.nameFormat, "name-format", "", "Name on the label: office or contact")
	cmd.Flags().BoolVar(&e.showTo, "show-to", false, "Add a \"To:\" line above the name")
}

func (e *exportFlags) options(cmd *cobra.Command, cfg *config.Config) (export.Options, error) {
	opts := export.Options{
		Template:   cfg.Export.Template,
		NameFormat: export.NameFormat(cfg.Export.NameFormat),
		ShowTo:     cfg.Export.ShowTo,
	}
	if e.template != "" {
		opts.Template = e.template
	}
	if e.nameFormat != "" {
		format, err := export.ParseNameFormat(e.nameFormat)
		if err != nil {
			return opts, err
		}
		opts.NameFormat = format
	}
	if cmd.Flags().Changed("show-to") {
		opts.ShowTo = e.showTo
	}
	if _, err := export.Lookup(opts.Template); err != nil {
		return opts, err
	}
	return opts, nil
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build mailing labels for the filtered offices",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := flags.filters()
			if err != nil {
				return err
			}
			records, err := ctx.loadRecords(cmd.Context())
			if err != nil {
				return err
			}

			start := time.Now()
			res := ctx.builder().Build(records, filters)
			if asJSON {
				return writeJSON(cmd, res)
			}

			out := cmd.OutOrStdout()
			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(tableStyle(out))
			t.AppendHeader(table.Row{"#", "Office", "Contact", "Address 1", "Address 2", "City", "State", "Zip"})
			for i, l := range res.Labels {
				t.AppendRow(table.Row{i + 1, l.OfficeName, l.ContactName, l.Address1, l.Address2, l.City, l.State, l.Zip})
			}
			t.Render()

			fmt.Fprintf(out, "%d labels from %d offices in %v\n", len(res.Labels), len(records), time.Since(start).Round(time.Millisecond))
			for _, issue := range res.ParseErrors {
				fmt.Fprintf(out, "  unparsed address for %s (%s): %s\n", issue.OfficeName, issue.OfficeID, issue.Address)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	var ex exportFlags

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the label sheets as text",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := flags.filters()
			if err != nil {
				return err
			}
			opts, err := ex.options(cmd, ctx.config)
			if err != nil {
				return err
			}
			tmpl, err := export.Lookup(opts.Template)
			if err != nil {
				return err
			}
			records, err := ctx.loadRecords(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, export.RenderPreview(ctx.builder().Labels(records, filters), tmpl, opts, !shouldColorize(out)))
			return nil
		},
	}
	flags.register(cmd)
	ex.register(cmd)
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	var ex exportFlags
	var outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the labels as an Excel workbook and a PDF sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !ctx.config.Features.ExportEnabled {
				return fmt.Errorf("export is disabled (features.export_enabled)")
			}
			filters, err := flags.filters()
			if err != nil {
				return err
			}
			opts, err := ex.options(cmd, ctx.config)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = ctx.config.Export.OutputDir
			}
			records, err := ctx.loadRecords(cmd.Context())
			if err != nil {
				return err
			}
			exporter, err := ctx.exporter()
			if err != nil {
				return err
			}

			bundle, err := exporter.WriteBundle(cmd.Context(), outDir, ctx.builder().Labels(records, filters), opts, time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exported %d labels\n", bundle.Labels)
			fmt.Fprintf(out, "  Excel: %s\n", bundle.ExcelPath)
			fmt.Fprintf(out, "  PDF:   %s\n", bundle.PDFPath)
			return nil
		},
	}
	flags.register(cmd)
	ex.register(cmd)
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default from config)")
	return cmd
}

// shouldColorize reports whether w is an interactive terminal.
func shouldColorize(w interface{}) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func tableStyle(w interface{}) table.Style {
	if shouldColorize(w) {
		return table.StyleRounded
	}
	return table.StyleDefault
}
