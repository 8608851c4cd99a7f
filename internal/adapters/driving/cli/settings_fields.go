package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// settingField reads and writes one setting addressed by its config key.
type settingField struct {
	get    func(s *domain.AppSettings) string
	set    func(s *domain.AppSettings, v string) error
	secret bool
}

func stringField(ptr func(s *domain.AppSettings) *string) settingField {
	return settingField{
		get: func(s *domain.AppSettings) string { return *ptr(s) },
		set: func(s *domain.AppSettings, v string) error {
			*ptr(s) = v
			return nil
		},
	}
}

func secretField(ptr func(s *domain.AppSettings) *string) settingField {
	f := stringField(ptr)
	f.secret = true
	return f
}

func intField(ptr func(s *domain.AppSettings) *int) settingField {
	return settingField{
		get: func(s *domain.AppSettings) string { return strconv.Itoa(*ptr(s)) },
		set: func(s *domain.AppSettings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%q is not an integer", v)
			}
			*ptr(s) = n
			return nil
		},
	}
}

func floatField(ptr func(s *domain.AppSettings) *float64) settingField {
	return settingField{
		get: func(s *domain.AppSettings) string { return strconv.FormatFloat(*ptr(s), 'g', -1, 64) },
		set: func(s *domain.AppSettings, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%q is not a number", v)
			}
			*ptr(s) = f
			return nil
		},
	}
}

func boolField(ptr func(s *domain.AppSettings) *bool) settingField {
	return settingField{
		get: func(s *domain.AppSettings) string { return strconv.FormatBool(*ptr(s)) },
		set: func(s *domain.AppSettings, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%q is not a boolean", v)
			}
			*ptr(s) = b
			return nil
		},
	}
}

func providerField(ptr func(s *domain.AppSettings) *domain.AIProvider) settingField {
	return settingField{
		get: func(s *domain.AppSettings) string { return string(*ptr(s)) },
		set: func(s *domain.AppSettings, v string) error {
			p := domain.AIProvider(v)
			if !p.IsValid() {
				return fmt.Errorf("unknown provider %q", v)
			}
			*ptr(s) = p
			return nil
		},
	}
}

// settingFields maps config keys to fields of domain.AppSettings.
var settingFields = map[string]settingField{
	"chunking.max_tokens": intField(func(s *domain.AppSettings) *int { return &s.Chunking.MaxTokens }),
	"chunking.overlap":    intField(func(s *domain.AppSettings) *int { return &s.Chunking.Overlap }),

	"retrieval.top_k":                intField(func(s *domain.AppSettings) *int { return &s.Retrieval.TopK }),
	"retrieval.k_final":              intField(func(s *domain.AppSettings) *int { return &s.Retrieval.KFinal }),
	"retrieval.query_expansion":      boolField(func(s *domain.AppSettings) *bool { return &s.Retrieval.QueryExpansion }),
	"retrieval.reranker":             boolField(func(s *domain.AppSettings) *bool { return &s.Retrieval.Reranker }),
	"retrieval.similarity_threshold": floatField(func(s *domain.AppSettings) *float64 { return &s.Retrieval.SimilarityThreshold }),

	"embedding.provider":   providerField(func(s *domain.AppSettings) *domain.AIProvider { return &s.Embedding.Provider }),
	"embedding.model":      stringField(func(s *domain.AppSettings) *string { return &s.Embedding.Model }),
	"embedding.base_url":   stringField(func(s *domain.AppSettings) *string { return &s.Embedding.BaseURL }),
	"embedding.api_key":    secretField(func(s *domain.AppSettings) *string { return &s.Embedding.APIKey }),
	"embedding.dimensions": intField(func(s *domain.AppSettings) *int { return &s.Embedding.Dimensions }),
	"embedding.batch_size": intField(func(s *domain.AppSettings) *int { return &s.Embedding.BatchSize }),

	"llm.provider": providerField(func(s *domain.AppSettings) *domain.AIProvider { return &s.LLM.Provider }),
	"llm.model":    stringField(func(s *domain.AppSettings) *string { return &s.LLM.Model }),
	"llm.base_url": stringField(func(s *domain.AppSettings) *string { return &s.LLM.BaseURL }),
	"llm.api_key":  secretField(func(s *domain.AppSettings) *string { return &s.LLM.APIKey }),

	"rerank.provider": providerField(func(s *domain.AppSettings) *domain.AIProvider { return &s.Rerank.Provider }),
	"rerank.model":    stringField(func(s *domain.AppSettings) *string { return &s.Rerank.Model }),
	"rerank.api_key":  secretField(func(s *domain.AppSettings) *string { return &s.Rerank.APIKey }),

	"index.vector_path":   stringField(func(s *domain.AppSettings) *string { return &s.Index.VectorPath }),
	"index.metadata_path": stringField(func(s *domain.AppSettings) *string { return &s.Index.MetadataPath }),

	"server.addr":                  stringField(func(s *domain.AppSettings) *string { return &s.Server.Addr }),
	"server.rate_limit_per_minute": intField(func(s *domain.AppSettings) *int { return &s.Server.RateLimitPerMinute }),
}

// settingKeys returns the known keys in sorted order.
func settingKeys() []string {
	keys := make([]string, 0, len(settingFields))
	for k := range settingFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
