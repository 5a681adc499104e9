package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bean-flow/internal/classify"
	"github.com/Veraticus/bean-flow/internal/common"
	"github.com/Veraticus/bean-flow/internal/model"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Show which account a statement row would be posted to",
		Long: `Run a single payee/description through the rule tables.

Examples:
  beanflow classify --payee 滴滴出行 --description 滴滴快车
  beanflow classify --payee 美团 --description 外卖订单 --time 2024-03-01T19:04:00+08:00`,
		Args: cobra.NoArgs,
		RunE: runClassify,
	}

	cmd.Flags().String("payee", "", "row payee")
	cmd.Flags().String("description", "", "row description")
	cmd.Flags().String("time", "", "row time (RFC 3339, or YYYY-MM-DD when the hour is unknown)")
	cmd.Flags().Bool("income", false, "try the income table first")

	return cmd
}

func runClassify(cmd *cobra.Command, _ []string) error {
	payee, _ := cmd.Flags().GetString("payee")
	description, _ := cmd.Flags().GetString("description")
	rawTime, _ := cmd.Flags().GetString("time")
	income, _ := cmd.Flags().GetBool("income")

	if payee == "" && description == "" {
		return common.NewUserError("Give at least one of --payee and --description", nil)
	}

	var when *model.Moment
	if rawTime != "" {
		parsed, err := model.ParseMoment(rawTime)
		if err != nil {
			return common.NewUserError("Invalid --time", err)
		}
		when = parsed
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	classifier, err := buildClassifier(settings)
	if err != nil {
		return err
	}

	in := classify.Input{Payee: payee, Description: description, When: when}
	return printDecision(cmd.OutOrStdout(), classifier, in, income)
}

func printDecision(w io.Writer, c *classify.Classifier, in classify.Input, income bool) error {
	if income {
		if account, ok := c.ClassifyIncome(in); ok {
			_, err := fmt.Fprintf(w, "%s\t(income)\n", account)
			return err
		}
	}
	d := c.Decide(in)
	_, err := fmt.Fprintf(w, "%s\t(%s)\n", d.Account, d.Source)
	return err
}
