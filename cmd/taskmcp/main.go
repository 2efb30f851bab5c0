package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"taskmcp/internal/app"
	"taskmcp/internal/config"
	"taskmcp/internal/db"
	"taskmcp/internal/events"
	"taskmcp/internal/migrate"
	"taskmcp/internal/registry"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskmcp",
		Short: "Task manager speaking JSON-RPC over stdio",
		Long: `taskmcp serves an in-memory task list to one client over standard streams.
Each line on stdin is a JSON-RPC request (initialize, tools/list, tools/call);
each line on stdout is the matching response. Logs go to stderr.
Tasks live only as long as the process.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	addPersistentFlags(root)
	root.AddCommand(serveCmd())
	root.AddCommand(toolsCmd())
	root.AddCommand(logCmd())
	root.AddCommand(configCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobra.OnInitialize(initConfig)
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	viper.SetEnvPrefix("TASKMCP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().StringP("config", "c", config.Path("."), "path to taskmcp.yml")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (text, json)")
	root.PersistentFlags().String("journal", "", "event journal database path (:memory: keeps it in memory)")
	root.PersistentFlags().Bool("no-journal", false, "disable the event journal")
	root.PersistentFlags().Bool("json", false, "output JSON")
	for _, name := range []string{"config", "log-level", "log-format", "journal", "no-journal", "json"} {
		_ = viper.BindPFlag(name, root.PersistentFlags().Lookup(name))
	}
}

// loadConfig reads the config file, then applies flag and env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := viper.GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if v := viper.GetString("journal"); v != "" {
		cfg.Journal.Enabled = true
		cfg.Journal.Path = v
	}
	if viper.GetBool("no-journal") {
		cfg.Journal.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve requests on stdin/stdout (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg, cmd.ErrOrStderr())
	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Show the operations advertised by tools/list",
		RunE: func(cmd *cobra.Command, args []string) error {
			tools := registry.Tools()
			if viper.GetBool("json") {
				return printJSON(cmd, tools)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Name", "Description", "Required", "Optional"})
			for _, t := range tools {
				required := map[string]bool{}
				for _, r := range t.InputSchema.Required {
					required[r] = true
				}
				var optional []string
				for name := range t.InputSchema.Properties {
					if !required[name] {
						if values, ok := registry.Enum(t.Name, name); ok {
							name = fmt.Sprintf("%s{%s}", name, strings.Join(values, "|"))
						}
						optional = append(optional, name)
					}
				}
				sort.Strings(optional)
				tw.AppendRow(table.Row{t.Name, t.Description, strings.Join(t.InputSchema.Required, ", "), strings.Join(optional, ", ")})
			}
			tw.Render()
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Inspect the event journal"}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var f events.Filter
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail journal events",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("journal")
			if db.IsMemory(path) {
				return fmt.Errorf("--journal must point to a journal file")
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("journal %s: %w", path, err)
			}
			conn, err := db.Open(db.Config{Path: path})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(cmd.Context(), conn); err != nil {
				return err
			}
			evts, err := events.Latest(cmd.Context(), conn, f)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cmd, evts)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"ID", "TS", "Run", "Type", "Task", "Payload"})
			for _, e := range evts {
				tw.AppendRow(table.Row{e.ID, e.TS, shortRun(e.RunID), e.Type, e.EntityID, e.Payload})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityID, "task-id", "", "task id filter")
	cmd.Flags().StringVar(&f.RunID, "run-id", "", "run id filter")
	return cmd
}

func configCmd() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Manage taskmcp.yml"}
	var file string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" || file == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), config.GenerateDefault())
				return err
			}
			if _, err := os.Stat(file); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", file)
			}
			if err := os.WriteFile(file, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", file)
			return nil
		},
	}
	initCmd.Flags().StringVar(&file, "file", "-", "destination file (- for stdout)")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cmd, cfg)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
	cfgCmd.AddCommand(initCmd, showCmd)
	return cfgCmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortRun(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
