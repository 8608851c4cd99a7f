// Package driven holds the interfaces core services call out through:
// ChunkStore, VectorIndex, EmbeddingService, DocumentLoader and
// ConfigStore are always wired.
//
// Reranker, Generator, AuditStore and PromptStore may be nil. Retrieval
// then keeps index order, answers are extractive, interactions go
// unrecorded and built-in prompts are used.
//
// Only the domain package may be imported from here.
package driven
