package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fixrun/fixrun/packages/discovery"
	"github.com/fixrun/fixrun/packages/filter"
)

var listCmd = &cobra.Command{
	Use:   "list <manifest>",
	Short: "List the tests and fixtures in a suite manifest",
	Long: `List all tests in a suite manifest without running anything.

Examples:
  fixrun list suite.json
  fixrun list suite.json -t smoke
  fixrun list suite.json --fixtures`,
	Args: cobra.ExactArgs(1),
	RunE: listCommand,
}

var (
	listMatchFlag    []string
	listTagFlag      []string
	listFixturesFlag bool
)

func init() {
	listCmd.Flags().StringSliceVarP(&listMatchFlag, "match", "m", nil, "List only tests whose id matches the regular expression (repeatable)")
	listCmd.Flags().StringSliceVarP(&listTagFlag, "tag", "t", nil, "List only tests satisfying the tag expression (repeatable)")
	listCmd.Flags().BoolVar(&listFixturesFlag, "fixtures", false, "Also list fixture definitions")
}

func listCommand(cmd *cobra.Command, args []string) error {
	suite, err := discovery.Load(args[0])
	if err != nil {
		return err
	}

	f, err := filter.New(listMatchFlag, listTagFlag)
	if err != nil {
		return err
	}

	module := ""
	count := 0
	for _, item := range suite.Items {
		if !f.Matches(item) {
			continue
		}
		if item.Module != module {
			module = item.Module
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", module)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s%s\n", item.Function, item.Args.Suffix())
		if len(item.Tags) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "    tags: %s\n", strings.Join(item.Tags, ", "))
		}
		if len(item.Fixtures) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "    fixtures: %s\n", strings.Join(item.Fixtures, ", "))
		}
		count++
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d tests\n", count)

	if listFixturesFlag {
		fmt.Fprintf(cmd.OutOrStdout(), "\nfixtures:\n")
		for _, def := range suite.Fixtures {
			line := fmt.Sprintf("  - %s (scope: %s", def.Name, def.Scope)
			if def.DeclPath != "" {
				line += ", declared in: " + def.DeclPath
			}
			line += ")"
			if def.Autouse {
				line += " [autouse]"
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			if len(def.DependsOn) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    depends on: %s\n", strings.Join(def.DependsOn, ", "))
			}
		}
	}

	return nil
}
