package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"clickload/internal/scenario"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the available user profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		catalog, err := loadCatalog(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
			return scenario.Encode(out, catalog)
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tWEIGHT\tWAIT\tSTARTUP\tTASKS")
		for _, name := range catalog.Names() {
			p, err := catalog.Lookup(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%d\t%s-%s\t%d\t%d\n",
				p.Name, p.SpawnWeight(), p.Wait.Min, p.Wait.Max, len(p.OnStart), len(p.Tasks))
		}
		return w.Flush()
	},
}

func init() {
	profilesCmd.Flags().Bool("yaml", false, "Print the profiles as a YAML profiles file")
}
