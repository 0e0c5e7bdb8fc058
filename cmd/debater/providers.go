package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kadirpekel/debater/pkg/provider"
)

// ProvidersCmd reports which backends are reachable.
type ProvidersCmd struct {
	Timeout time.Duration `help:"Overall check timeout." default:"15s"`
	JSON    bool          `name:"json" help:"Print the report as JSON."`
}

func (c *ProvidersCmd) Run(cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	registry := provider.NewFromConfig(cfg)
	report := registry.Availability(ctx)
	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printProviders(os.Stdout, registry.IDs(), report)
}

func printProviders(out io.Writer, ids []string, report map[string]provider.Status) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tAVAILABLE\tMODELS")
	for _, id := range ids {
		st := report[id]
		models := "-"
		if n := len(st.Models); n > 0 {
			models = st.Models[0].ID
			if n > 1 {
				models = fmt.Sprintf("%s (+%d more)", models, n-1)
			}
		}
		fmt.Fprintf(tw, "%s\t%t\t%s\n", id, st.Available, models)
	}
	return tw.Flush()
}
