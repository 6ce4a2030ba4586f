package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/dtb-digital/prospect-agent/internal/model"
)

var (
	runDomain     string
	runRole       string
	runMaxResults int
	runDepth      int
	runAll        bool
	runFormat     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the prospect pipeline for one company domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runFormat != "json" && runFormat != "table" {
			return eris.Errorf("unknown --format %q (want json or table)", runFormat)
		}

		ctx := cmd.Context()
		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Run(ctx, model.Request{
			Domain:      runDomain,
			TargetRole:  runRole,
			MaxResults:  runMaxResults,
			SearchDepth: runDepth,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if runFormat == "table" {
			return writeTable(out, res, runAll)
		}
		return writeResultJSON(out, res, runAll)
	},
}

// writeResultJSON prints the result. Unless all is set, only analyzed
// users are included.
func writeResultJSON(w io.Writer, res *model.Result, all bool) error {
	view := *res
	if !all {
		view.Users = res.Analyzed()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(view), "encode result")
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7A8699"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
)

// writeTable renders users, failure traces and totals for a terminal.
func writeTable(w io.Writer, res *model.Result, all bool) error {
	users := res.Users
	if !all {
		users = res.Analyzed()
	}

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		score := "-"
		if u.PriorityScore != nil {
			score = fmt.Sprintf("%.2f", *u.PriorityScore)
		}
		exp := "-"
		if u.ExperienceYears != nil {
			exp = fmt.Sprintf("%g", *u.ExperienceYears)
		}
		rows = append(rows, []string{
			u.FullName(), u.Email, u.RoleTitle, score, exp, string(u.EducationLevel), strings.Join(u.Sources, ","),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("NAME", "EMAIL", "ROLE", "SCORE", "EXPERIENCE", "EDUCATION", "STAGES").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", headerStyle.Render(res.Request.Domain), mutedStyle.Render(res.Request.TargetRole))
	b.WriteString(t.String())
	b.WriteString("\n")

	for _, tr := range res.Traces {
		if !tr.IsFailure() {
			continue
		}
		line := fmt.Sprintf("%s %s", tr.Stage, tr.Kind)
		if tr.Email != "" {
			line += " " + tr.Email
		}
		b.WriteString(warnStyle.Render(line) + mutedStyle.Render(": "+tr.Message) + "\n")
	}

	fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf("run %s  %d users  %d analyzed  %d tokens  $%.4f",
		res.RunID, len(res.Users), len(res.Analyzed()), res.Usage.Total(), res.Usage.Cost)))

	_, err := io.WriteString(w, b.String())
	return err
}

func init() {
	runCmd.Flags().StringVar(&runDomain, "domain", "", "company domain, e.g. acme.com (required)")
	runCmd.Flags().StringVar(&runRole, "role", "", "target role to rank contacts against (required)")
	runCmd.Flags().IntVar(&runMaxResults, "max-results", model.DefaultMaxResults, "number of contacts to enrich")
	runCmd.Flags().IntVar(&runDepth, "depth", model.DefaultSearchDepth, "number of discovery pages to read")
	runCmd.Flags().BoolVar(&runAll, "all", false, "include contacts that were not fully analyzed")
	runCmd.Flags().StringVar(&runFormat, "format", "json", "output format: json or table")
	_ = runCmd.MarkFlagRequired("domain")
	_ = runCmd.MarkFlagRequired("role")
	rootCmd.AddCommand(runCmd)
}
