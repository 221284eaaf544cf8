package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/minios-linux/nameproxy/config"
	"github.com/minios-linux/nameproxy/dict"
	"github.com/minios-linux/nameproxy/i18n"
	"github.com/minios-linux/nameproxy/store"
)

// ---------------------------------------------------------------------------
// dict
// ---------------------------------------------------------------------------

func newDictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dict",
		Short: "Import and inspect dictionaries",
		Long: `Import dictionary files into the SQLite store and inspect entries.

The store is the database from ` + config.FileName + ` or --database, or
$XDG_DATA_HOME/nameproxy/nameproxy.db when neither is set.

YAML files:
  contexts:
    - id: game-1
      entries:
        - {kind: name, source: 拓也, target: Takuya, role: main-male}
        - {kind: suffix, source: さん, target: -san}

TSV dumps start with a header naming the columns:
  context	kind	source	target	role

Examples:
  nameproxy dict import names.yaml
  nameproxy dict import --replace dump.tsv
  nameproxy dict list --context game-1
  nameproxy dict contexts`,
	}

	cmd.AddCommand(
		newDictImportCmd(),
		newDictListCmd(),
		newDictContextsCmd(),
		newDictRemoveCmd(),
	)

	return cmd
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("database", "", "SQLite dictionary store")
	cmd.Flags().StringSlice("dictionary", nil, "Dictionary file (YAML or TSV), repeatable")
}

// openStore opens the configured store, falling back to the default path.
func openStore(cfg *config.Config) (*store.Store, string, error) {
	path := cfg.DatabasePath()
	if path == "" {
		def, err := config.DefaultDatabasePath()
		if err != nil {
			return nil, "", err
		}
		path = def
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, "", fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening dictionary store %s: %w", path, err)
	}
	return st, path, nil
}

// readDictFile reads one dictionary file. format is auto, yaml or tsv.
func readDictFile(path, format string) ([]dict.Record, error) {
	switch strings.ToLower(format) {
	case "", "auto":
		return dict.LoadFile(path)
	case "yaml", "yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		records, err := dict.ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return records, nil
	case "tsv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		records, err := dict.ReadDump(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return records, nil
	}
	return nil, fmt.Errorf("unknown format %q (valid: auto, yaml, tsv)", format)
}

func newDictImportCmd() *cobra.Command {
	var (
		format  string
		replace bool
	)

	cmd := &cobra.Command{
		Use:   "import [FILE...]",
		Short: "Import dictionary files into the store",
		Long: `Import YAML or TSV dictionary files into the store. Without FILE
arguments the dictionaries listed in ` + config.FileName + ` are imported.

Re-importing an entry with the same context, kind, source and target
updates its role. With --replace every context present in the files is
cleared first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			files := args
			if len(files) == 0 {
				files = cfg.DictionaryPaths()
			}
			if len(files) == 0 {
				return fmt.Errorf("no dictionary files given and none listed in %s", config.FileName)
			}

			var records []dict.Record
			for _, f := range files {
				recs, err := readDictFile(f, format)
				if err != nil {
					return err
				}
				logInfo(i18n.N("%s: %d entry", "%s: %d entries", len(recs)), f, len(recs))
				records = append(records, recs...)
			}

			st, path, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if replace {
				for _, id := range recordContexts(records) {
					n, err := st.DeleteContext(ctx, id)
					if err != nil {
						return err
					}
					if n > 0 {
						logInfo(i18n.N("Cleared %d entry from context %s", "Cleared %d entries from context %s", int(n)), n, id)
					}
				}
			}

			n, err := st.PutRecords(ctx, records)
			if err != nil {
				return err
			}
			logSuccess(i18n.N("Imported %d entry into %s", "Imported %d entries into %s", n), n, path)
			return nil
		},
	}

	addStoreFlags(cmd)
	cmd.Flags().StringVar(&format, "format", "auto", "File format: auto, yaml, tsv")
	cmd.Flags().BoolVar(&replace, "replace", false, "Clear the imported contexts first")

	return cmd
}

func recordContexts(records []dict.Record) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range records {
		if !seen[r.Context] {
			seen[r.Context] = true
			ids = append(ids, r.Context)
		}
	}
	sort.Strings(ids)
	return ids
}

// dictRecords lists the records of contextID (all contexts if empty) from
// the store, or from the configured files when no database is set.
func dictRecords(ctx context.Context, cfg *config.Config, contextID string) ([]dict.Record, error) {
	if cfg.DatabasePath() == "" {
		if files := cfg.DictionaryPaths(); len(files) > 0 {
			records, err := dict.LoadFiles(files...)
			if err != nil {
				return nil, err
			}
			if contextID == "" {
				return records, nil
			}
			var out []dict.Record
			for _, r := range records {
				if r.Context == contextID {
					out = append(out, r)
				}
			}
			return out, nil
		}
	}

	st, _, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	ids := []string{contextID}
	if contextID == "" {
		if ids, err = st.Contexts(ctx); err != nil {
			return nil, err
		}
	}
	var out []dict.Record
	for _, id := range ids {
		recs, err := st.Records(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

type recordJSON struct {
	Context string `json:"context"`
	Kind    string `json:"kind"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Role    string `json:"role,omitempty"`
}

func newDictListCmd() *cobra.Command {
	var (
		contextID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List dictionary entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			records, err := dictRecords(cmd.Context(), cfg, contextID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				rows := make([]recordJSON, 0, len(records))
				for _, r := range records {
					rows = append(rows, toRecordJSON(r))
				}
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			if len(records) == 0 {
				logInfo("%s", i18n.T("No entries"))
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CONTEXT\tKIND\tSOURCE\tTARGET\tROLE")
			for _, r := range records {
				row := toRecordJSON(r)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.Context, row.Kind, row.Source, row.Target, row.Role)
			}
			return tw.Flush()
		},
	}

	addStoreFlags(cmd)
	cmd.Flags().StringVar(&contextID, "context", "", "Only this context")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")

	return cmd
}

func toRecordJSON(r dict.Record) recordJSON {
	row := recordJSON{Context: r.Context, Kind: r.Kind.String(), Source: r.Source, Target: r.Target}
	if r.Kind == dict.RecordName {
		row.Role = r.Role.String()
	}
	return row
}

func newDictContextsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contexts",
		Short: "List dictionary contexts with entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			records, err := dictRecords(cmd.Context(), cfg, "")
			if err != nil {
				return err
			}

			counts := make(map[string]map[dict.RecordKind]int)
			for _, r := range records {
				if counts[r.Context] == nil {
					counts[r.Context] = make(map[dict.RecordKind]int)
				}
				counts[r.Context][r.Kind]++
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CONTEXT\tNAMES\tSUFFIXES\tTERMS")
			for _, id := range recordContexts(records) {
				c := counts[id]
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", id, c[dict.RecordName], c[dict.RecordSuffix], c[dict.RecordTerm])
			}
			return tw.Flush()
		},
	}

	addStoreFlags(cmd)
	return cmd
}

func newDictRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove CONTEXT",
		Short: "Delete every entry of a context from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, _, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.DeleteContext(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if n == 0 {
				logWarning(i18n.T("Context %s has no entries"), args[0])
				return nil
			}
			logSuccess(i18n.N("Removed %d entry from %s", "Removed %d entries from %s", int(n)), n, args[0])
			return nil
		},
	}

	cmd.Flags().String("database", "", "SQLite dictionary store")
	return cmd
}

// ---------------------------------------------------------------------------
// cache
// ---------------------------------------------------------------------------

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the translation cache",
		Long: `Cached translations are kept per provider, model, language pair,
prompt and base URL when cache: true is set in ` + config.FileName + ` (or
--cache is passed).`,
	}

	var all bool
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete cached translations",
		Long: `Delete cached translations of the configured provider, model,
language pair, prompt and base URL, or every cached translation with --all.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, _, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			namespace := cfg.CacheNamespace()
			if all {
				namespace = ""
			}
			n, err := st.PurgeTranslations(cmd.Context(), namespace)
			if err != nil {
				return err
			}
			logSuccess(i18n.N("Deleted %d cached translation", "Deleted %d cached translations", int(n)), n)
			return nil
		},
	}
	purge.Flags().BoolVar(&all, "all", false, "Delete every cached translation")
	purge.Flags().String("database", "", "SQLite dictionary store")
	purge.Flags().String("provider", "", "Provider of the cache to purge")
	purge.Flags().String("model", "", "Model of the cache to purge")
	purge.Flags().String("base-url", "", "API base URL of the cache to purge")
	purge.Flags().String("prompt", "", "Custom system prompt of the cache to purge")
	purge.Flags().String("prompt-type", "", "Prompt type of the cache to purge")
	purge.Flags().String("source-lang", "", "Source language")
	purge.Flags().String("target-lang", "", "Target language")

	cmd.AddCommand(purge)
	return cmd
}
