package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tax-reconciliation-service/cmd/reconciler/config"
	"tax-reconciliation-service/internal/aiassist"
	"tax-reconciliation-service/internal/input"
	"tax-reconciliation-service/internal/matcher"
	"tax-reconciliation-service/internal/models"
	"tax-reconciliation-service/internal/reconciler"
	"tax-reconciliation-service/internal/reporter"
	"tax-reconciliation-service/internal/scoring"
	"tax-reconciliation-service/pkg/logger"
)

// Flags for the reconcile command
var (
	invoicesFile  string
	withholding   string
	bankStatement string

	projectName  string
	companyTaxID string
	periodStart  string
	periodEnd    string

	outputFormat string
	outputFile   string

	minConfidence float64
	dateTolerance int

	useAI   bool
	aiModel string
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile tax documents for one filing period",
	Long: `Reconcile splits the invoice file into Points A and B using the
company tax ID, then runs two matching passes: Point A against the
withholding certificates (Point C) and Point B against the bank
statement (Point E).

Input files are JSON arrays of extracted records as produced by the
OCR stage.

Examples:
  # invoices against withholding certificates
  reconciler reconcile --invoices fp.json --withholding bp.json \
    --company-tax-id 01.234.567.8-901.000 \
    --period-start 2024-01-01 --period-end 2024-01-31

  # full run with bank statement, JSON report to file
  reconciler reconcile --invoices fp.json --withholding bp.json \
    --bank-statement rk.json --company-tax-id 01.234.567.8-901.000 \
    --period-start 2024-01-01 --period-end 2024-01-31 \
    --output-format json --output-file report.json

  # AI-assisted run (reads RECONCILER_AI_API_KEY from the environment)
  reconciler reconcile --invoices fp.json --withholding bp.json \
    --company-tax-id 01.234.567.8-901.000 \
    --period-start 2024-01-01 --period-end 2024-01-31 --use-ai`,

	PreRunE: validateReconcileFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runReconcile(cmd, args); err != nil {
			os.Exit(NewCLIErrorHandler().HandleError(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVarP(&invoicesFile, "invoices", "i", "", "path to Faktur Pajak JSON file (required)")
	reconcileCmd.Flags().StringVarP(&withholding, "withholding", "w", "", "path to Bukti Potong JSON file")
	reconcileCmd.Flags().StringVarP(&bankStatement, "bank-statement", "b", "", "path to Rekening Koran JSON file")

	reconcileCmd.Flags().StringVar(&projectName, "project-name", "", "project name (default derived from the period)")
	reconcileCmd.Flags().StringVar(&companyTaxID, "company-tax-id", "", "filing company NPWP (required)")
	reconcileCmd.Flags().StringVar(&periodStart, "period-start", "", "filing period start (YYYY-MM-DD, required)")
	reconcileCmd.Flags().StringVar(&periodEnd, "period-end", "", "filing period end (YYYY-MM-DD, required)")

	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	reconcileCmd.Flags().Float64VarP(&minConfidence, "min-confidence", "m", 0, "acceptance floor override (0 keeps the default)")
	reconcileCmd.Flags().IntVarP(&dateTolerance, "date-tolerance", "d", 7, "date matching tolerance in days")

	reconcileCmd.Flags().BoolVar(&useAI, "use-ai", false, "request AI hints for ambiguous pairs")
	reconcileCmd.Flags().StringVar(&aiModel, "ai-model", "", "override the AI model name")

	reconcileCmd.MarkFlagRequired("invoices")
	reconcileCmd.MarkFlagRequired("company-tax-id")
	reconcileCmd.MarkFlagRequired("period-start")
	reconcileCmd.MarkFlagRequired("period-end")

	viper.BindPFlag("invoices", reconcileCmd.Flags().Lookup("invoices"))
	viper.BindPFlag("withholding", reconcileCmd.Flags().Lookup("withholding"))
	viper.BindPFlag("bank-statement", reconcileCmd.Flags().Lookup("bank-statement"))
	viper.BindPFlag("company-tax-id", reconcileCmd.Flags().Lookup("company-tax-id"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("min-confidence", reconcileCmd.Flags().Lookup("min-confidence"))
	viper.BindPFlag("date-tolerance", reconcileCmd.Flags().Lookup("date-tolerance"))
	viper.BindPFlag("use-ai", reconcileCmd.Flags().Lookup("use-ai"))
	viper.BindPFlag("ai-model", reconcileCmd.Flags().Lookup("ai-model"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	if withholding == "" && bankStatement == "" {
		return fmt.Errorf("at least one of --withholding or --bank-statement is required")
	}

	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format %q (valid: console, json, csv)", outputFormat)
	}

	if _, err := time.Parse("2006-01-02", periodStart); err != nil {
		return fmt.Errorf("invalid --period-start %q: expected YYYY-MM-DD", periodStart)
	}
	if _, err := time.Parse("2006-01-02", periodEnd); err != nil {
		return fmt.Errorf("invalid --period-end %q: expected YYYY-MM-DD", periodEnd)
	}

	if minConfidence < 0 || minConfidence > 1 {
		return fmt.Errorf("--min-confidence must be in [0,1], got %f", minConfidence)
	}
	if dateTolerance <= 0 {
		return fmt.Errorf("--date-tolerance must be positive, got %d", dateTolerance)
	}

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log, err := config.CreateLogger(verbose)
	if err != nil {
		return err
	}
	logger.SetGlobalLogger(log)

	scoringConfig := config.CreateScoringConfig(dateTolerance)
	scorer, err := scoring.NewEngine(scoringConfig)
	if err != nil {
		return err
	}

	matchEngine, err := matcher.NewEngine(matcher.DefaultConfig())
	if err != nil {
		return err
	}

	aiConfig := config.CreateAIConfig(useAI, aiModel)
	adapter, err := aiassist.NewAdapter(aiConfig)
	if err != nil {
		return err
	}

	loader := input.NewLoader()
	invoices, err := loader.LoadFakturPajak(invoicesFile)
	if err != nil {
		return err
	}

	var certificates []*models.BuktiPotongRecord
	if withholding != "" {
		if certificates, err = loader.LoadBuktiPotong(withholding); err != nil {
			return err
		}
	}

	var bankRows []*models.RekeningKoranRecord
	if bankStatement != "" {
		if bankRows, err = loader.LoadRekeningKoran(bankStatement); err != nil {
			return err
		}
	}

	start, _ := time.Parse("2006-01-02", periodStart)
	end, _ := time.Parse("2006-01-02", periodEnd)

	store := reconciler.NewMemoryStore()
	project := &models.ReconciliationProject{
		Name:         projectName,
		PeriodStart:  start.UTC(),
		PeriodEnd:    end.UTC(),
		CompanyTaxID: companyTaxID,
	}
	if project.Name == "" {
		project.Name = fmt.Sprintf("reconciliation %s to %s", periodStart, periodEnd)
	}
	if err := store.Create(project); err != nil {
		return err
	}

	orchestrator := reconciler.New(scorer, matchEngine, adapter)
	result, err := orchestrator.Reconcile(context.Background(), project,
		invoices, certificates, bankRows,
		reconciler.Options{UseAI: useAI, MinConfidence: minConfidence})
	if err != nil {
		return err
	}

	if err := store.Update(project); err != nil {
		return err
	}
	if err := store.SaveResult(result); err != nil {
		return err
	}

	out := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return reporter.New().Render(out, result, reporter.OutputFormat(outputFormat))
}
