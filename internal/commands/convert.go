package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-editor/internal/audit"
	"github.com/insightdelivered/statement-editor/internal/config"
	"github.com/insightdelivered/statement-editor/internal/extractor"
	"github.com/insightdelivered/statement-editor/internal/models"
	"github.com/insightdelivered/statement-editor/internal/service"
	"github.com/insightdelivered/statement-editor/internal/store"
	"github.com/insightdelivered/statement-editor/internal/writer"
)

type convertOptions struct {
	format    string
	output    string
	editPath  string
	actor     string
	auditLog  bool
	strict    bool
	configRef *string
}

func newConvertCommand(configPath *string) *cobra.Command {
	opts := convertOptions{configRef: configPath}

	cmd := &cobra.Command{
		Use:   "convert <statement> [statement ...]",
		Short: "Parse statements, optionally edit them, and export",
		Long: `Parse PDF, DOCX or TXT bank statements and write them in another format.

An edit request in JSON (the body accepted by POST /edit/{id}) can be applied
before exporting; --audit writes the resulting audit log next to the output.`,
		Example: `  statement-editor convert statement.pdf
  statement-editor convert --format xlsx jan.pdf feb.pdf
  statement-editor convert --edit fix.json --audit --format docx statement.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := writer.Lookup(opts.format); err != nil {
				return fmt.Errorf("%w (supported: %s)", err, strings.Join(writer.Formats(), ", "))
			}
			if opts.output != "" && len(args) > 1 {
				return fmt.Errorf("--output needs exactly one input file")
			}

			cfg, err := config.Load(*opts.configRef)
			if err != nil {
				return err
			}
			if opts.strict {
				cfg.Parser.StrictBalances = true
			}
			return runConvert(cmd.Context(), cmd.OutOrStdout(), cfg, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "csv", "export format: "+strings.Join(writer.Formats(), ", "))
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path (defaults to the input name with the format extension)")
	cmd.Flags().StringVar(&opts.editPath, "edit", "", "JSON edit request to apply before exporting")
	cmd.Flags().StringVar(&opts.actor, "actor", "", "actor recorded in audit entries")
	cmd.Flags().BoolVar(&opts.auditLog, "audit", false, "write the audit log as JSONL next to the output")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "reject statements whose running balances do not add up")

	return cmd
}

func runConvert(ctx context.Context, out io.Writer, cfg *config.Config, opts convertOptions, inputs []string) error {
	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	var req *models.EditRequest
	if opts.editPath != "" {
		req, err = readEditRequest(opts.editPath)
		if err != nil {
			return err
		}
	}

	svc, cleanup, err := buildService(ctx, cfg, store.NewMemory(), logger)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, input := range inputs {
		if err := convertFile(ctx, out, svc, input, req, opts); err != nil {
			return fmt.Errorf("processing %s: %w", input, err)
		}
	}
	return nil
}

func convertFile(ctx context.Context, out io.Writer, svc *service.Service, input string, req *models.EditRequest, opts convertOptions) error {
	if !extractor.Supported(input) {
		return fmt.Errorf("expected one of %s, got %q", strings.Join(extractor.SupportedExtensions, ", "), filepath.Ext(input))
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintf(out, "Processing: %s\n", input)
	st, err := svc.Upload(ctx, service.Upload{Document: extractor.Document{Name: filepath.Base(input), Data: data}})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Found %d transaction(s)\n", len(st.Transactions))
	if st.Header.BankName != "" {
		fmt.Fprintf(out, "  Bank: %s\n", st.Header.BankName)
	}

	if req != nil {
		_, summary, err := svc.Edit(ctx, st.ID, *req, opts.actor)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  Applied %d change(s)\n", summary.TotalChanges)
	}

	exp, err := svc.Export(ctx, st.ID, opts.format)
	if err != nil {
		return err
	}
	outPath := opts.output
	if outPath == "" {
		outPath = strings.TrimSuffix(input, filepath.Ext(input)) + "." + strings.ToLower(opts.format)
	}
	if samePath(outPath, input) {
		outPath = strings.TrimSuffix(input, filepath.Ext(input)) + "_edited." + strings.ToLower(opts.format)
	}
	if err := os.WriteFile(outPath, exp.Data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Fprintf(out, "  Output: %s\n", outPath)

	if opts.auditLog {
		entries, err := svc.AuditLog(ctx, st.ID)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := audit.WriteJSONL(&buf, entries); err != nil {
			return err
		}
		auditPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_audit.jsonl"
		if err := os.WriteFile(auditPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing audit log: %w", err)
		}
		fmt.Fprintf(out, "  Audit log: %s\n", auditPath)
	}

	if st.Header.AccountHolder != "" {
		fmt.Fprintf(out, "  Account holder: %s\n", st.Header.AccountHolder)
	}
	if st.Header.AccountNumber != "" {
		fmt.Fprintf(out, "  Account number: %s\n", st.Header.AccountNumber)
	}
	if st.Header.StatementPeriod != "" {
		fmt.Fprintf(out, "  Period: %s\n", st.Header.StatementPeriod)
	}
	fmt.Fprintln(out, "  Done.")
	return nil
}

func readEditRequest(path string) (*models.EditRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading edit request: %w", err)
	}
	var req models.EditRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parsing edit request: %w", err)
	}
	return &req, nil
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	return err1 == nil && err2 == nil && aa == bb
}
