package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure chunking, retrieval, AI providers and server options.

Use get and set with a dotted key, or run a provider subcommand for an
interactive setup.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Change one setting by its dotted key, for example:

  groundwork settings set retrieval.k_final 8
  groundwork settings set embedding.provider openai`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, k := range settingKeys() {
			cmd.Println(k)
		}
	},
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used for indexing and retrieval.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider that writes answers from retrieved context.`,
	RunE:  runSettingsLLM,
}

var settingsRerankCmd = &cobra.Command{
	Use:   "rerank",
	Short: "Configure rerank provider",
	Long:  `Configure the cross-encoder that reorders retrieved passages.`,
	RunE:  runSettingsRerank,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsRerankCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Max tokens: %d\n", settings.Chunking.MaxTokens)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  K final: %d\n", settings.Retrieval.KFinal)
	cmd.Printf("  Query expansion: %t\n", settings.Retrieval.QueryExpansion)
	cmd.Printf("  Reranker: %t\n", settings.Retrieval.Reranker)
	cmd.Printf("  Similarity threshold: %.2f\n", settings.Retrieval.SimilarityThreshold)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider == domain.AIProviderOllama {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	showAPIKey(cmd, settings.Embedding.Provider, settings.Embedding.APIKey)
	showStatus(cmd, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	if settings.LLM.Provider != domain.AIProviderNone {
		cmd.Printf("  Model: %s\n", settings.LLM.Model)
		showAPIKey(cmd, settings.LLM.Provider, settings.LLM.APIKey)
		showStatus(cmd, settings.LLM.IsConfigured())
	}
	cmd.Println()

	cmd.Println("[Rerank]")
	cmd.Printf("  Provider: %s\n", settings.Rerank.Provider.Description())
	if settings.Rerank.Provider != domain.AIProviderNone {
		cmd.Printf("  Model: %s\n", settings.Rerank.Model)
		showAPIKey(cmd, settings.Rerank.Provider, settings.Rerank.APIKey)
		showStatus(cmd, settings.Rerank.IsConfigured())
	}
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Vectors: %s\n", settings.Index.VectorPath)
	cmd.Printf("  Metadata: %s\n", settings.Index.MetadataPath)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Printf("  Rate limit: %d/min\n", settings.Server.RateLimitPerMinute)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'groundwork settings set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func showAPIKey(cmd *cobra.Command, provider domain.AIProvider, key string) {
	if !provider.RequiresAPIKey() {
		return
	}
	if key != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(key))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
}

func showStatus(cmd *cobra.Command, configured bool) {
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	field, ok := settingFields[args[0]]
	if !ok {
		return fmt.Errorf("unknown setting %q (see 'groundwork settings keys')", args[0])
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	value := field.get(settings)
	if field.secret && value != "" {
		value = maskAPIKey(value)
	}
	cmd.Println(value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	field, ok := settingFields[key]
	if !ok {
		return fmt.Errorf("unknown setting %q (see 'groundwork settings keys')", key)
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := field.set(settings, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	if field.secret {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

func runSettingsRerank(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureRerankProvider(cmd, reader)
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selectedProvider := providers[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	apiKey, err := promptAPIKey(cmd, reader, selectedProvider)
	if err != nil {
		return err
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n", selectedProvider.Description(), model)
	cmd.Println("Run 'groundwork rebuild' so the index uses the new embedder.")
	return nil
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := []domain.AIProvider{domain.AIProviderNone, domain.AIProviderOpenAI}
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [2]: ")
	idx := parseChoice(readLine(reader), len(providers), 2)
	selectedProvider := providers[idx-1]

	var model, apiKey string
	if selectedProvider != domain.AIProviderNone {
		defaultModel := domain.DefaultLLMModels()[selectedProvider]
		cmd.Printf("Enter model name [%s]: ", defaultModel)
		model = readLine(reader)
		if model == "" {
			model = defaultModel
		}

		var err error
		if apiKey, err = promptAPIKey(cmd, reader, selectedProvider); err != nil {
			return err
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	if selectedProvider == domain.AIProviderNone {
		cmd.Println("LLM disabled: answers will quote the retrieved passages.")
		return nil
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n", selectedProvider.Description(), model)
	return nil
}

func configureRerankProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Rerank Provider")
	providers := []domain.AIProvider{domain.AIProviderNone, domain.AIProviderCohere}
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [2]: ")
	idx := parseChoice(readLine(reader), len(providers), 2)
	selectedProvider := providers[idx-1]

	var model, apiKey string
	if selectedProvider != domain.AIProviderNone {
		cmd.Printf("Enter model name [%s]: ", domain.DefaultRerankModel)
		model = readLine(reader)
		if model == "" {
			model = domain.DefaultRerankModel
		}

		var err error
		if apiKey, err = promptAPIKey(cmd, reader, selectedProvider); err != nil {
			return err
		}
	}

	if err := settingsService.SetRerankProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure rerank provider: %w", err)
	}

	if selectedProvider == domain.AIProviderNone {
		cmd.Println("Reranking disabled.")
		return nil
	}
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateRerankConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("rerank configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Rerank provider configured: %s (%s)\n", selectedProvider.Description(), model)
	cmd.Println("Enable it with 'groundwork settings set retrieval.reranker true'.")
	return nil
}

// promptAPIKey asks for a key when the provider needs one. An empty answer
// is accepted so the key can come from the environment.
func promptAPIKey(cmd *cobra.Command, reader *bufio.Reader, provider domain.AIProvider) (string, error) {
	if !provider.RequiresAPIKey() {
		return "", nil
	}
	cmd.Print("Enter API key (blank to use the environment): ")
	apiKey := readPassword(reader)
	cmd.Println()
	return apiKey, nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo on a terminal and falls back to reader.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
