package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"compliance-backend/internal/recommendation"
)

const envPrefix = "COMPLIANCE"

// newRootCmd builds the CLI. Every flag can also be set through a
// COMPLIANCE_<FLAG> environment variable, with dashes mapped to underscores.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "recommend",
		Short:         "Privacy program staffing recommendations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("catalog", "", "catalog YAML file; defaults to the built-in catalog")
	_ = v.BindPFlag("catalog", root.PersistentFlags().Lookup("catalog"))
	root.AddCommand(newGenerateCmd(v), newCatalogCmd(v))
	return root
}

func newGenerateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a recommendation from assessment JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, v)
		},
	}
	flags := cmd.Flags()
	flags.StringP("input", "i", "-", "assessment JSON file, or - for stdin")
	flags.StringP("size", "s", "medium", "organization size: small, medium, large, enterprise")
	flags.String("policy", "reject", "missing section policy: reject or assume_midpoint")
	flags.Bool("compact", false, "print compact JSON")
	for _, name := range []string{"input", "size", "policy", "compact"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	return cmd
}

func runGenerate(cmd *cobra.Command, v *viper.Viper) error {
	policy, err := recommendation.ParseMissingSectionPolicy(v.GetString("policy"))
	if err != nil {
		return err
	}
	size, err := recommendation.ParseOrganizationSize(v.GetString("size"))
	if err != nil {
		return err
	}

	raw, err := readInput(cmd.InOrStdin(), v.GetString("input"))
	if err != nil {
		return err
	}
	var data recommendation.AssessmentData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decode assessment: %w", err)
	}

	catalog, err := loadCatalog(v.GetString("catalog"))
	if err != nil {
		return err
	}
	engine := recommendation.New(catalog, recommendation.WithMissingSectionPolicy(policy))
	rec, err := engine.Generate(data, size)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if !v.GetBool("compact") {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(rec)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return raw, nil
}

// loadCatalog reads a catalog file, accepting the older string FTE ranges,
// or falls back to the embedded catalog.
func loadCatalog(path string) (*recommendation.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return recommendation.DefaultCatalog()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return recommendation.LoadCatalog(raw)
}

func newCatalogCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the roles in the active catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := loadCatalog(v.GetString("catalog"))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "catalog %s\n", c.Version)
			for _, r := range c.Roles {
				fmt.Fprintf(out, "%-16s %-24s critical %s\n", r.ID, r.Name, r.FTE.Critical)
			}
			return nil
		},
	}
}
