// Command msgshim runs the Anthropic-to-OpenAI translating proxy and
// its two offline conversion tools.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/anthroshim/msgshim/internal/applog"
	"github.com/anthroshim/msgshim/internal/config"
	"github.com/anthroshim/msgshim/pkg/httpserver"
	"github.com/anthroshim/msgshim/pkg/responses"
	"github.com/anthroshim/msgshim/pkg/streambridge"
	"github.com/anthroshim/msgshim/pkg/telemetry"
	"github.com/anthroshim/msgshim/pkg/transform"
)

var rootCmd = &cobra.Command{
	Use:           "msgshim",
	Short:         "Anthropic Messages <-> OpenAI Responses translating proxy",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the translating proxy HTTP server",
	RunE:  runServe,
}

var (
	convertIn   string
	convertOut  string
	convertMode string
)

var convertCmd = &cobra.Command{
	Use:   "openai-to-anthropic",
	Short: "Convert an OpenAI Responses payload (JSON file) to an Anthropic Messages request",
	RunE:  runConvert,
}

var (
	streamIn        string
	streamOut       string
	streamModel     string
	streamMessageID string
)

var streamCmd = &cobra.Command{
	Use:   "openai-stream-to-anthropic-stream",
	Short: "Convert OpenAI streaming events (NDJSON) to Anthropic streaming events (NDJSON)",
	RunE:  runStream,
}

func init() {
	convertCmd.Flags().StringVar(&convertIn, "in", "", "input JSON file (required)")
	convertCmd.Flags().StringVar(&convertOut, "out", "", "output JSON file (required)")
	convertCmd.Flags().StringVar(&convertMode, "mode", "auto", "input interpretation: auto|input|response|output")
	_ = convertCmd.MarkFlagRequired("in")
	_ = convertCmd.MarkFlagRequired("out")

	streamCmd.Flags().StringVar(&streamIn, "in", "", "input NDJSON file (required)")
	streamCmd.Flags().StringVar(&streamOut, "out", "", "output NDJSON file (required)")
	streamCmd.Flags().StringVar(&streamModel, "model", "unknown", "model name for message_start")
	streamCmd.Flags().StringVar(&streamMessageID, "message-id", "", "message id for message_start (generated if empty)")
	_ = streamCmd.MarkFlagRequired("in")
	_ = streamCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(serveCmd, convertCmd, streamCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applog.Init(cfg.Logging)

	if cfg.Telemetry.OTLPEndpoint != "" {
		provider, err := telemetry.NewProvider(telemetry.ProviderConfig{
			Endpoint: cfg.Telemetry.OTLPEndpoint,
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = provider.Shutdown(context.Background())
		}()
	}

	srv := httpserver.New(cfg)
	applog.L().Info().Str("addr", cfg.Server.ListenAddr).Msg("listening")
	return http.ListenAndServe(cfg.Server.ListenAddr, srv)
}

func runConvert(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(convertIn)
	if err != nil {
		return err
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse %s: %w", convertIn, err)
	}

	out, err := transform.ConvertOpenAIToAnthropic(data, transform.Mode(convertMode), transform.Options{})
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(convertOut, append(encoded, '\n'), 0o644)
}

func runStream(cmd *cobra.Command, args []string) error {
	fin, err := os.Open(streamIn)
	if err != nil {
		return err
	}
	defer fin.Close()

	fout, err := os.Create(streamOut)
	if err != nil {
		return err
	}
	defer fout.Close()

	if err := convertStream(fin, fout, streamModel, streamMessageID); err != nil {
		return err
	}
	return fout.Sync()
}

// convertStream pumps NDJSON Responses events through the streaming
// bridge and writes the resulting Anthropic events as NDJSON. Blank
// input lines are skipped; a malformed line fails the run, since a file
// (unlike a live SSE stream) is expected to be well-formed.
func convertStream(r io.Reader, w io.Writer, model, messageID string) error {
	bridge := streambridge.NewBridge(messageID, model, false)
	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal(line, &raw); err != nil {
			return fmt.Errorf("parse event: %w", err)
		}
		ev, err := responses.DecodeStreamEvent(raw)
		if err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		for _, outEv := range bridge.Feed(ev) {
			if err := enc.Encode(outEv); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	for _, outEv := range bridge.End() {
		if err := enc.Encode(outEv); err != nil {
			return err
		}
	}
	return out.Flush()
}
