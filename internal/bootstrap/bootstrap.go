package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/laurentvv/haproxy-docs-rag/internal/config"
	"github.com/laurentvv/haproxy-docs-rag/internal/core/ports"
	"github.com/laurentvv/haproxy-docs-rag/internal/core/usecase"
	"github.com/laurentvv/haproxy-docs-rag/internal/infrastructure/cache"
	"github.com/laurentvv/haproxy-docs-rag/internal/infrastructure/corpus"
	"github.com/laurentvv/haproxy-docs-rag/internal/infrastructure/lexical"
	"github.com/laurentvv/haproxy-docs-rag/internal/infrastructure/llm/ollama"
	"github.com/laurentvv/haproxy-docs-rag/internal/infrastructure/queue/nats"
	"github.com/laurentvv/haproxy-docs-rag/internal/infrastructure/repository/postgres"
	"github.com/laurentvv/haproxy-docs-rag/internal/infrastructure/rerank"
	"github.com/laurentvv/haproxy-docs-rag/internal/infrastructure/resilience"
	"github.com/laurentvv/haproxy-docs-rag/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Store     ports.ChunkStore
	Retriever ports.Retriever
	Rebuilder ports.IndexRebuilder

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewChunkRepository(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	vocab, err := config.LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	stopwords := vocab.Stopwords
	if len(stopwords) == 0 {
		stopwords = usecase.DefaultStopwords()
	}
	tokenizer := usecase.NewTokenizer(stopwords)
	expander := usecase.NewExpander(vocab, tokenizer)
	booster := usecase.NewBooster(usecase.BoostParams{
		CategoryFactor: cfg.BoostCategoryFactor,
		KeywordWeight:  cfg.BoostKeywordWeight,
		SectionBonus:   cfg.BoostSectionBonus,
	}, vocab, tokenizer)

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel)
	embedder := ollama.NewResilientEmbedder(ollama.NewEmbedder(ollamaClient), executor)

	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	holder := lexical.NewHolder(tokenizer.Tokenize, lexical.Params{K1: cfg.BM25K1, B: cfg.BM25B})
	catalog := corpus.NewCatalog()
	publisher := corpus.NewPublisher(holder, catalog)

	// The lexical index and chunk catalog live in memory; rebuild them
	// from postgres on every start. An empty corpus is not fatal, the
	// API degrades to vector-only until the first load.
	if chunks, err := store.ListAll(ctx); err != nil {
		logger.Warn("startup corpus load failed", "error", err)
	} else if len(chunks) == 0 {
		logger.Warn("chunk store is empty, lexical search disabled until corpus load")
	} else {
		publisher.PublishCorpus(chunks)
		logger.Info("corpus published", "chunks", len(chunks))
	}

	var reranker ports.Reranker = rerank.NewPassthrough()
	if cfg.RerankerURL != "" {
		reranker = rerank.NewCrossEncoder(cfg.RerankerURL, time.Duration(cfg.RerankTimeoutSecs)*time.Second)
	}

	retrieveUC := usecase.NewRetrieveUseCase(
		usecase.RetrieverConfig{
			BaseTopK:            cfg.RetrievalTopK,
			TopKVector:          cfg.RetrievalTopKVector,
			TopKLexical:         cfg.RetrievalTopKLexical,
			TopKFused:           cfg.RetrievalTopKFused,
			TopKRerank:          cfg.RetrievalTopKRerank,
			TopKCeiling:         cfg.RetrievalTopKCeiling,
			RRFK:                cfg.RetrievalRRFK,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
			EmbedTimeout:        time.Duration(cfg.EmbedTimeoutSecs) * time.Second,
			RerankTimeout:       time.Duration(cfg.RerankTimeoutSecs) * time.Second,
		},
		tokenizer,
		expander,
		booster,
		embedder,
		vectorIndex,
		holder,
		reranker,
		catalog,
	)

	var retriever ports.Retriever = retrieveUC
	var redisCache *cache.RedisCache
	if cfg.CacheEnabled {
		redisCache = cache.NewRedisCache(
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			time.Duration(cfg.CacheTTLSecs)*time.Second,
		)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable at startup, caching may recover later", "error", err)
		}
		retriever = cache.NewCachingRetriever(retrieveUC, redisCache, cfg.Fingerprint(), logger)
	}

	rebuildUC := usecase.NewRebuildIndexUseCase(
		store, embedder, vectorIndex, publisher, cfg.RebuildEmbedBatchSize,
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Queue:     queue,
		Store:     store,
		Retriever: retriever,
		Rebuilder: rebuildUC,

		closeFn: func() {
			queue.Close()
			if redisCache != nil {
				_ = redisCache.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
