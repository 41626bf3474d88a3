package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/match-ranker/internal/ai"
	"github.com/spigell/match-ranker/internal/ai/gemini"
	"github.com/spigell/match-ranker/internal/ai/openai"
	"github.com/spigell/match-ranker/internal/filtering"
	"github.com/spigell/match-ranker/internal/logger"
	"github.com/spigell/match-ranker/internal/matching"
	"github.com/spigell/match-ranker/internal/ranking"
	"github.com/spigell/match-ranker/internal/secrets"
	"github.com/spigell/match-ranker/internal/store/file"
	"github.com/spigell/match-ranker/internal/store/postgres"
)

const (
	PromptPrint           = "Print results"
	PromptDetails         = "Show result details"
	PromptDump            = "Dump results to file"
	PromptAppendToExclude = "Append all results to exclude file"
	PromptExit            = "Exit"
	PromptBack            = "back"
)

var errExit = errors.New("exit requested")

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a pool against a seeker or a vacancy",
}

var rankJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Rank open vacancies for a job seeker",
	Run: func(cmd *cobra.Command, _ []string) {
		runRank(cmd, matching.KindJobs, cmd.Flag("seeker").Value.String())
	},
}

var rankCandidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Rank candidates for a vacancy",
	Run: func(cmd *cobra.Command, _ []string) {
		runRank(cmd, matching.KindCandidates, cmd.Flag("vacancy").Value.String())
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.AddCommand(rankJobsCmd, rankCandidatesCmd)

	rankCmd.PersistentFlags().BoolP("yes", "y", false, "print results without the interactive menu")
	rankCmd.PersistentFlags().IntP("limit", "l", 0, "return at most this many results (0 means all)")
	rankCmd.PersistentFlags().Bool("no-ai", false, "rank with skill overlap scores only")
	rankCmd.PersistentFlags().StringP("exclude-file", "e", "", "file with identifiers to exclude from the pool. Default is unset.")

	rankCmd.PersistentFlags().StringSlice("disable-filter", nil, "filter steps to skip: active, owners, exclude_file")

	viper.BindPFlag("filters.exclude-file", rankCmd.PersistentFlags().Lookup("exclude-file"))
	viper.BindPFlag("filters.disabled", rankCmd.PersistentFlags().Lookup("disable-filter"))

	rankJobsCmd.Flags().StringP("seeker", "s", "", "job seeker identifier")
	rankJobsCmd.MarkFlagRequired("seeker")
	rankCandidatesCmd.Flags().StringP("vacancy", "v", "", "vacancy identifier")
	rankCandidatesCmd.MarkFlagRequired("vacancy")
}

func runRank(cmd *cobra.Command, kind matching.Kind, subjectID string) {
	zlog, err := logger.New(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: viper.GetString("log-output"),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer zlog.Sync()

	if err := rank(cmd, kind, subjectID, zlog); err != nil && !errors.Is(err, errExit) {
		var pre *ranking.PreconditionError
		if errors.As(err, &pre) {
			zlog.Fatal("cannot rank", zap.String("reason", pre.Message))
		}
		zlog.Fatal("exiting", zap.Error(err))
	}
}

// rank is the main command for the cli.
func rank(cmd *cobra.Command, kind matching.Kind, subjectID string, log *zap.Logger) error {
	ctx := context.Background()

	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	log.Info("starting the match-ranker", zap.String("version", version), zap.String("kind", string(kind)))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	catalog, closeCatalog, err := newCatalog(ctx, config.Store)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", config.Store.Driver, err)
	}
	defer closeCatalog()

	filters := prepareFilters(config.Filters, log)
	if err := filters.Validate(); err != nil {
		return fmt.Errorf("validating filters: %w", err)
	}
	for _, status := range filters.Describe() {
		log.Debug("filter", zap.String("name", status.Name), zap.Bool("enabled", status.Enabled), zap.Any("details", status.Details))
	}

	noAI, _ := cmd.Flags().GetBool("no-ai")
	ranker := newRanker(ctx, config.AI, noAI, log)

	limit, _ := cmd.Flags().GetInt("limit")
	service := ranking.NewService(catalog, filters, ranker, log)

	ranked, err := service.Rank(ctx, kind, subjectID, limit)
	if err != nil {
		return err
	}
	results := matching.Results(ranked)

	if len(results) == 0 {
		log.Info("exiting", zap.String("reason", "nothing to rank"))
		return nil
	}

	log.Info("ranking finished", zap.Int("count", len(results)))

	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return printResults(cmd.OutOrStdout(), results)
	}

	prompt := promptui.Select{
		Label: "What next?",
		Items: []string{PromptPrint, PromptDetails, PromptDump, PromptAppendToExclude, PromptExit},
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		if err := handleAction(cmd.OutOrStdout(), action, kind, results, config, log); err != nil {
			return err
		}
	}
}

func handleAction(out io.Writer, action string, kind matching.Kind, results matching.Results, config *Config, log *zap.Logger) error {
	switch action {
	case PromptPrint:
		return printResults(out, results)
	case PromptDetails:
		return showDetails(out, results)
	case PromptDump:
		filename, err := results.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		log.Info("dumping results to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExclude:
		return appendToExcludeFile(kind, results, config, log)
	case PromptExit:
		log.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printResults(out io.Writer, results matching.Results) error {
	for i, r := range results {
		marks := make([]string, 0, 2)
		if r.Applied {
			marks = append(marks, "applied")
		}
		if r.Saved {
			marks = append(marks, "saved")
		}
		line := fmt.Sprintf("%3d. [%3d] %s %s: %s", i+1, r.Score, r.SubjectID, r.Title, r.Reason)
		if len(marks) > 0 {
			line += " (" + strings.Join(marks, ", ") + ")"
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func showDetails(out io.Writer, results matching.Results) error {
	for {
		items := make([]string, 0, len(results)+1)
		for _, r := range results {
			items = append(items, fmt.Sprintf("%s %s / %d", r.SubjectID, r.Title, r.Score))
		}

		selectPrompt := promptui.Select{
			Label: "Choose a result and press ENTER",
			Items: append(items, PromptBack),
		}

		idx, selected, err := selectPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		pretty, err := json.MarshalIndent(results[idx], "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(pretty))
	}
}

func appendToExcludeFile(kind matching.Kind, results matching.Results, config *Config, log *zap.Logger) error {
	path := ""
	if config.Filters != nil {
		path = strings.TrimSpace(config.Filters.ExcludeFile)
	}
	if path == "" {
		log.Warn("exclude file is not configured", zap.String("hint", "set filters.exclude-file or --exclude-file"))
		return nil
	}

	excluded, err := filtering.ReadExcludeFile(path)
	if err != nil {
		return err
	}

	added := excluded.Append(kind, results, time.Now().UTC())
	if err := excluded.ToFile(path); err != nil {
		return fmt.Errorf("writing exclude file: %w", err)
	}

	log.Info("results appended to exclude file",
		zap.String("file", path),
		zap.Int("added", added),
		zap.Strings("ids", results.IDs()),
	)
	return nil
}

func newCatalog(ctx context.Context, cfg *StoreConfig) (ranking.Catalog, func(), error) {
	switch cfg.Driver {
	case "file":
		store, err := file.Load(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "postgres":
		store, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

func prepareFilters(cfg *FiltersConfig, log *zap.Logger) *filtering.Filtering {
	if cfg == nil {
		cfg = &FiltersConfig{}
	}

	steps := []filtering.Filter{
		filtering.NewActive(),
		filtering.NewOwners(cfg.ExcludeOwners, log),
		filtering.NewExcludeFile(cfg.ExcludeFile, log),
	}

	filters := filtering.New(steps, log)
	for _, name := range cfg.Disabled {
		filters.DisableByName(strings.TrimSpace(name), "disabled by configuration")
	}

	return filters
}

// newRanker builds a ranker. A provider that cannot be built is logged and the
// ranker falls back to skill overlap scores.
func newRanker(ctx context.Context, cfg *AIConfig, noAI bool, log *zap.Logger) *ranking.Ranker {
	opts := ranking.Options{
		Params:       cfg.Params(),
		Timeout:      cfg.Timeout,
		MaxLogLength: cfg.MaxLogLength,
	}

	if noAI || !cfg.Enabled {
		log.Info("ai provider disabled, ranking by skill overlap only")
		return ranking.NewRanker(nil, opts, log)
	}

	provider, err := newProvider(ctx, cfg, log)
	if err != nil {
		log.Warn("skipping ai provider", zap.Error(err))
		return ranking.NewRanker(nil, opts, log)
	}

	logger.WithProvider(log, provider.Name(), provider.Model()).Info("ai provider ready", zap.Duration("timeout", cfg.Timeout))
	return ranking.NewRanker(provider, opts, log)
}

func newProvider(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Completer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", "gemini":
		src := secrets.Source{Name: "gemini api key"}
		if cfg.Gemini != nil {
			src.Value, src.File, src.Env = cfg.Gemini.APIKey, cfg.Gemini.APIKeyFile, cfg.Gemini.APIKeyEnv
		}
		apiKey, err := secrets.Load(src)
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}
		return gemini.NewGenerator(ctx, apiKey, cfg.Model, log)
	case "openai":
		src := secrets.Source{Name: "openai api key"}
		baseURL := ""
		if cfg.OpenAI != nil {
			src.Value, src.File, src.Env = cfg.OpenAI.APIKey, cfg.OpenAI.APIKeyFile, cfg.OpenAI.APIKeyEnv
			baseURL = cfg.OpenAI.BaseURL
		}
		apiKey, err := secrets.Load(src)
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.openai.api-key-file or OPENAI_API_KEY_FILE)", err)
		}
		return openai.NewClient(baseURL, apiKey, cfg.Model, nil, log)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

// redacted returns a copy of the config safe to log.
func redacted(config *Config) *Config {
	cp := *config
	if config.AI != nil {
		aiCfg := *config.AI
		if aiCfg.Gemini != nil {
			g := *aiCfg.Gemini
			g.APIKey = mask(g.APIKey)
			aiCfg.Gemini = &g
		}
		if aiCfg.OpenAI != nil {
			o := *aiCfg.OpenAI
			o.APIKey = mask(o.APIKey)
			aiCfg.OpenAI = &o
		}
		cp.AI = &aiCfg
	}
	if config.Store != nil {
		s := *config.Store
		s.DatabaseURL = mask(s.DatabaseURL)
		cp.Store = &s
	}
	return &cp
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
