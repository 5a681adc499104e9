package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bean-flow/internal/classify"
	"github.com/Veraticus/bean-flow/internal/cli"
	"github.com/Veraticus/bean-flow/internal/rules"
)

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the effective rule tables in precedence order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			classifier, err := buildClassifier(settings)
			if err != nil {
				return err
			}
			return printRules(cmd.OutOrStdout(), classifier)
		},
	}
}

func printRules(w io.Writer, c *classify.Classifier) error {
	var b strings.Builder
	for _, table := range c.Tables() {
		b.WriteString(cli.TitleStyle.UnsetMargins().Render(fmt.Sprintf("%s (%s, %d rules)", table.Name, table.Set.Kind(), table.Set.Len())))
		b.WriteString("\n")
		for _, rule := range table.Set.Rules() {
			fmt.Fprintf(&b, "  %-24s → %s\n", rule.Pattern, rules.Describe(rule.Resolver))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s %s\n", cli.SubtleStyle.Render("default →"), c.DefaultAccount())

	_, err := io.WriteString(w, b.String())
	return err
}
