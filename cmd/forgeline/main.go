package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"forgeline/internal/config"
	"forgeline/internal/database"
	"forgeline/internal/events"
	"forgeline/internal/llm/client"
	"forgeline/internal/models"
	"forgeline/internal/pipeline"
	"forgeline/internal/publish"
	"forgeline/internal/services"
	"forgeline/internal/utils"
)

var (
	// Global flags
	configPath string

	// run flags
	specRef      string
	specFile     string
	frontend     string
	backend      string
	databaseTech string
	publishRepo  string

	// specs put flags
	projectName      string
	summary          string
	requirementsFile string

	// list flags
	listLimit int
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "forgeline",
	Short: "forgeline - specification-to-code generation pipeline",
	Long: `forgeline turns a structured project specification into a generated
codebase: one planning pass produces a file manifest, then bounded
concurrent workers generate, review, fix and persist each file, optionally
publishing results to a git repository.`,
	SilenceUsage: true,
}

// runCmd starts a generation session
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a generation session from a specification",
	Long: `Starts a generation session. The specification comes either from a
stored reference (--spec-ref) or from a JSON file (--spec-file).

Example:
  forgeline run --spec-file spec.json --frontend react --backend go --database postgres
  forgeline run --spec-ref 7d8f... --publish acme/shop@main`,
	RunE: runSession,
}

// statusCmd reports the current state of a session
var statusCmd = &cobra.Command{
	Use:   "status [session-id]",
	Short: "Show the current state of a generation session",
	Args:  cobra.ExactArgs(1),
	RunE:  showStatus,
}

// sessionsCmd lists recent sessions
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent generation sessions",
	RunE:  listSessions,
}

// specsCmd groups specification store operations
var specsCmd = &cobra.Command{
	Use:   "specs",
	Short: "Manage stored specifications",
}

var specsPutCmd = &cobra.Command{
	Use:   "put",
	Short: "Store a specification and print its reference ID",
	Long: `Stores a specification for later use with run --spec-ref. Content comes
from a JSON file (--file) or is assembled from --project, --summary and a
requirements file with one requirement per line (--requirements).`,
	RunE: putSpec,
}

var specsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored specifications",
	RunE:  listSpecs,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: forgeline.yaml)")

	runCmd.Flags().StringVar(&specRef, "spec-ref", "", "Reference ID of a stored specification")
	runCmd.Flags().StringVar(&specFile, "spec-file", "", "Path to a specification JSON file")
	runCmd.Flags().StringVar(&frontend, "frontend", "", "Frontend technology (e.g. react)")
	runCmd.Flags().StringVar(&backend, "backend", "", "Backend technology (e.g. go)")
	runCmd.Flags().StringVar(&databaseTech, "database", "", "Database technology (e.g. postgres)")
	runCmd.Flags().StringVar(&publishRepo, "publish", "", "Publish target as owner/repo or owner/repo@branch")

	specsPutCmd.Flags().StringVar(&specFile, "file", "", "Path to a specification JSON file")
	specsPutCmd.Flags().StringVar(&projectName, "project", "", "Project name")
	specsPutCmd.Flags().StringVar(&summary, "summary", "", "Executive summary")
	specsPutCmd.Flags().StringVar(&requirementsFile, "requirements", "", "File with one functional requirement per line")

	sessionsCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum sessions to list")
	specsListCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum specifications to list")

	specsCmd.AddCommand(specsPutCmd)
	specsCmd.AddCommand(specsListCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(specsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles everything a command needs after wiring.
type app struct {
	cfg          *config.Config
	services     *services.Services
	orchestrator *pipeline.Orchestrator
	natsEmitter  *events.NATSEmitter
}

func (a *app) Close() {
	if a.natsEmitter != nil {
		a.natsEmitter.Close()
	}
}

// setup wires config -> database -> services -> llm client -> pipeline.
// Commands that never call the model (status, listing) pass needModel=false
// so they work without an API key.
func setup(ctx context.Context, needModel bool) (*app, error) {
	if err := utils.LoadEnv(); err != nil {
		log.Printf("env: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	db, err := database.Init(database.Config{Path: cfg.Database.Path})
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	svcs := services.NewServices(db)
	svcs.Startup(ctx)

	a := &app{cfg: cfg, services: svcs}

	if cfg.NATS.URL != "" {
		emitter, err := events.NewNATSEmitter(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		a.natsEmitter = emitter
		events.SetCustomEmitter(emitter.Emit)
	}

	if !needModel {
		return a, nil
	}

	apiKey := providerAPIKey(cfg.Model.Provider)
	completions, err := client.NewClient(ctx, cfg.Model.Provider, apiKey, cfg.Model.Name)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init model client: %w", err)
	}

	publisher, err := publish.NewGitPublisher(publish.Config{
		WorkDir:     cfg.Publish.WorkDir,
		RemoteBase:  cfg.Publish.RemoteBase,
		Token:       os.Getenv("FORGELINE_GIT_TOKEN"),
		AuthorName:  cfg.Publish.AuthorName,
		AuthorEmail: cfg.Publish.AuthorEmail,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init publisher: %w", err)
	}

	analyzer := pipeline.NewAnalyzer(completions, cfg.Pipeline.ManifestMaxTokens, cfg.Model.Temperature)
	worker := pipeline.NewWorker(completions, svcs.Sessions, publisher, cfg.Model.MaxTokens, cfg.Model.Temperature)
	coordinator := pipeline.NewCoordinator(worker, cfg.Pipeline.MaxWorkers)
	a.orchestrator = pipeline.NewOrchestrator(svcs.Sessions, svcs.Specifications, analyzer, coordinator)

	return a, nil
}

func providerAPIKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	default:
		return os.Getenv("ANTHROPIC_API_KEY")
	}
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	req := pipeline.StartRequest{
		SpecificationRef: specRef,
		Target: models.TargetConfig{
			Frontend: frontend,
			Backend:  backend,
			Database: databaseTech,
		},
	}
	if specFile != "" {
		spec, err := readSpecFile(specFile)
		if err != nil {
			return err
		}
		req.Specification = spec
	}
	if publishRepo != "" {
		target, err := parsePublishTarget(publishRepo)
		if err != nil {
			return err
		}
		req.Publish = target
	}

	sessionID, err := a.orchestrator.Start(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(sessionID)

	// Forward Ctrl-C to the session so a clean cancel is recorded.
	go func() {
		<-ctx.Done()
		_ = a.orchestrator.Cancel(sessionID)
	}()

	snapshot, err := a.orchestrator.Await(sessionID)
	if err != nil {
		return err
	}
	printSnapshot(snapshot)
	if snapshot.Status == models.SessionFailed {
		return fmt.Errorf("session failed: %s", snapshot.Error)
	}
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	snapshot, err := a.services.Sessions.Snapshot(args[0])
	if err != nil {
		return err
	}
	printSnapshot(snapshot)
	return nil
}

func listSessions(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	sessions, err := a.services.Sessions.ListSessions(listLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCREATED\tERROR")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Status, s.CreatedAt.Format("2006-01-02 15:04"), s.ErrorMessage)
	}
	return w.Flush()
}

func putSpec(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	var spec *models.Specification
	if specFile != "" {
		spec, err = readSpecFile(specFile)
		if err != nil {
			return err
		}
	} else {
		if requirementsFile == "" {
			return fmt.Errorf("either --file or --requirements is required")
		}
		requirements, err := utils.ReadNonEmptyLines(requirementsFile)
		if err != nil {
			return fmt.Errorf("read requirements: %w", err)
		}
		spec = &models.Specification{
			ProjectName:            projectName,
			ExecutiveSummary:       summary,
			FunctionalRequirements: requirements,
		}
	}

	record, err := a.services.Specifications.Put(spec)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s v%d)\n", record.ID, record.ProjectName, record.Version)
	return nil
}

func listSpecs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.services.Specifications.List(listLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROJECT\tVERSION\tCREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.ID, r.ProjectName, r.Version, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func readSpecFile(path string) (*models.Specification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read specification file: %w", err)
	}
	var spec models.Specification
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse specification file: %w", err)
	}
	return &spec, nil
}

// parsePublishTarget parses "owner/repo" or "owner/repo@branch".
func parsePublishTarget(s string) (*models.PublishTarget, error) {
	branch := ""
	if at := strings.LastIndex(s, "@"); at >= 0 {
		branch = s[at+1:]
		s = s[:at]
	}
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("publish target must be owner/repo or owner/repo@branch")
	}
	return &models.PublishTarget{Owner: owner, Repo: repo, Branch: branch}, nil
}

func printSnapshot(s *models.SessionSnapshot) {
	fmt.Printf("session  %s\n", s.ID)
	fmt.Printf("status   %s\n", s.Status)
	if s.Error != "" {
		fmt.Printf("error    %s\n", s.Error)
	}
	if s.Manifest != nil {
		fmt.Printf("manifest %d files\n", s.Manifest.Len())
	}
	if len(s.Results) == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSTATE\tSCORE\tFIXED\tPUBLISHED")
	for _, r := range s.Results {
		score := "-"
		if r.Analysis != nil {
			score = fmt.Sprintf("%d", r.Analysis.QualityScore)
		}
		published := "-"
		if r.PublishRecord != nil {
			published = r.PublishRecord.Revision[:min(8, len(r.PublishRecord.Revision))]
		} else if r.PublishError != "" {
			published = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", r.Path, r.State, score, r.FixApplied, published)
	}
	w.Flush()
}
