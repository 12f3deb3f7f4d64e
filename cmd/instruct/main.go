// Command instruct inspects record definitions, decodes agent payloads and
// runs extractions from the command line or over HTTP.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	instruct "github.com/ourstudio-se/ai-instruct-sdk"
	"github.com/ourstudio-se/ai-instruct-sdk/records"
	"github.com/ourstudio-se/ai-instruct-sdk/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "instruct",
		Short:        "Structured extraction through agent tool calls",
		Long:         "instruct advertises record types to an agent as tools and decodes the arguments it returns.",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to a config file (yaml, json or toml)")
	root.PersistentFlags().String("records", "records", "directory of record definition files")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	schemaCmd := &cobra.Command{
		Use:   "schema <record>",
		Short: "Print the tool descriptor of a record type",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchema,
	}
	schemaCmd.Flags().Bool("parameters", false, "print only the parameter schema")
	schemaCmd.Flags().String("name", "", "override the tool name")
	schemaCmd.Flags().String("description", "", "override the tool description")
	root.AddCommand(schemaCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode <record> [payload-file]",
		Short: "Decode an argument payload from a file or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runDecode,
	}
	decodeCmd.Flags().Bool("strict", false, "also check the payload with the JSON Schema engine")
	root.AddCommand(decodeCmd)

	extractCmd := &cobra.Command{
		Use:   "extract <record> <text>",
		Short: "Ask the agent to extract a record from text",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runExtract,
	}
	addAgentFlags(extractCmd)
	extractCmd.Flags().String("system", "", "system prompt sent before the text")
	root.AddCommand(extractCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the record registry over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addAgentFlags(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "listen address")
	root.AddCommand(serveCmd)

	return root
}

func addAgentFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("provider", providerOpenAI, "agent provider (openai, anthropic, openrouter)")
	f.String("api-key", "", "provider API key")
	f.String("base-url", "", "provider base URL override")
	f.String("model", "gpt-4o", "model name")
	f.Float32("temperature", 0, "sampling temperature")
	f.Int("max-tokens", 0, "response token limit")
	f.Int("max-retries", 3, "agent calls made before giving up on a payload")
	f.Bool("force-tool", false, "force the agent to call the record tool")
	f.Duration("timeout", 60*time.Second, "timeout of a single agent call")
}

func loadRecord(cfg cliConfig, name string) (instruct.RecordType, error) {
	registry, err := records.LoadDir(cfg.RecordsDir)
	if err != nil {
		return instruct.RecordType{}, err
	}
	return registry.Lookup(name)
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := loadRecord(cfg, args[0])
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")
	tool, err := instruct.BuildToolDescriptor(rt, name, description)
	if err != nil {
		return err
	}

	if only, _ := cmd.Flags().GetBool("parameters"); only {
		return printJSON(cmd.OutOrStdout(), tool.Parameters)
	}
	return printJSON(cmd.OutOrStdout(), tool)
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := loadRecord(cfg, args[0])
	if err != nil {
		return err
	}

	var payload []byte
	if len(args) == 2 && args[1] != "-" {
		payload, err = os.ReadFile(args[1])
	} else {
		payload, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		doc, err := instruct.CompileSchema(rt)
		if err != nil {
			return err
		}
		if err := doc.ValidatePayload(payload); err != nil {
			return err
		}
	}

	values, err := instruct.DecodeArguments(rt, payload)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), values)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rt, err := loadRecord(cfg, args[0])
	if err != nil {
		return err
	}

	client, err := newClient(cfg, newLogger(cfg.LogLevel))
	if err != nil {
		return err
	}

	var messages []instruct.LLMMessage
	if system, _ := cmd.Flags().GetString("system"); system != "" {
		messages = append(messages, instruct.LLMMessage{Role: instruct.RoleSystem, Content: system})
	}
	messages = append(messages, instruct.LLMMessage{
		Role:    instruct.RoleUser,
		Content: strings.Join(args[1:], " "),
	})

	res, err := client.ExtractRecord(cmd.Context(), rt, instruct.Request{Messages: messages})
	if err != nil {
		return err
	}

	if !res.Invoked {
		fmt.Fprintln(cmd.ErrOrStderr(), "agent did not call the tool:")
		fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		return res.Err()
	}
	return printJSON(cmd.OutOrStdout(), res.Values)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	srv, err := newServer(cfg, newLogger(cfg.LogLevel))
	if err != nil {
		return err
	}
	return srv.ListenAndServe(cfg.Addr)
}

// newServer loads the records and builds the HTTP server. Extraction is only
// enabled when an API key is configured.
func newServer(cfg cliConfig, logger *slog.Logger) (*server.Server, error) {
	registry, err := records.LoadDir(cfg.RecordsDir)
	if err != nil {
		return nil, err
	}

	var opts []server.Option
	if cfg.APIKey != "" {
		client, err := newClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, server.WithClient(client))
	} else {
		logger.Warn("no api key configured, extraction is disabled")
	}

	return server.New(registry, server.Config{
		RequestTimeout: cfg.RequestTimeout * time.Duration(max(cfg.MaxRetries, 1)),
		Logger:         logger,
	}, opts...), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
