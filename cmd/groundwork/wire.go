package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/groundwork/internal/adapters/driven/ai"
	"github.com/custodia-labs/groundwork/internal/adapters/driven/config/file"
	"github.com/custodia-labs/groundwork/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/groundwork/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/groundwork/internal/adapters/driving/cli"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/core/services"
	"github.com/custodia-labs/groundwork/internal/logger"
	"github.com/custodia-labs/groundwork/internal/normalisers"
	"github.com/custodia-labs/groundwork/internal/postprocessors"
)

// buildServices wires the adapters under dataDir into the core services.
func buildServices(_ context.Context, dataDir string) (*cli.Services, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".groundwork")
	}
	logger.Debug("Data directory: %s", dataDir)

	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator(), dataDir)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(dataDir, "prompts"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	aiServices := ai.Init(settings)
	if aiServices.FellBack {
		logger.Warn("Using the offline hashing embedder; rebuild the index once %s is reachable",
			settings.Embedding.Provider)
	}

	chunks := store.ChunkStore()
	index := flat.New(settings.Index.VectorPath, settings.Index.MetadataPath)
	gateway := services.NewEmbeddingGateway(aiServices.EmbeddingService, settings.Embedding.BatchSize)
	indexService := services.NewIndexService(chunks, index, gateway)

	ingestService := services.NewIngestService(
		chunks,
		normalisers.NewDefaultRegistry(),
		pipelineFactory(),
		indexService,
		index,
		services.IngestConfig{
			Chunking:   settings.Chunking,
			StagingDir: filepath.Join(dataDir, "uploads"),
		},
	)

	retrievalService := services.NewRetrievalService(
		gateway,
		index,
		chunks,
		aiServices.Reranker,
		indexService,
		services.RetrievalConfig{
			QueryExpansion: settings.Retrieval.QueryExpansion,
			Rerank:         settings.Retrieval.Reranker,
		},
	)

	queryService := services.NewQueryService(
		retrievalService,
		aiServices.Generator,
		prompts,
		store.AuditStore(),
		services.QueryConfig{
			SimilarityThreshold: settings.Retrieval.SimilarityThreshold,
			EmbedModel:          aiServices.EmbeddingService.ModelName(),
		},
	)

	return &cli.Services{
		Ingest:    ingestService,
		Retrieval: retrievalService,
		Query:     queryService,
		Settings:  settingsService,
		Close: func() error {
			aiServices.Close()
			return errors.Join(index.Close(), store.Close())
		},
	}, nil
}

// pipelineFactory builds the clean-and-chunk pipeline from the default
// post-processors.
func pipelineFactory() services.PipelineFactory {
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	return func(maxTokens, overlap int) (driven.PostProcessorPipeline, error) {
		pipeline, err := postprocessors.BuildPipeline(registry, maxTokens, overlap)
		if err != nil {
			return nil, err
		}
		return pipeline, nil
	}
}
