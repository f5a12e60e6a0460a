package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"

	"digital.vasic.lnmtl/internal/bible"
	"digital.vasic.lnmtl/internal/chapter"
	"digital.vasic.lnmtl/internal/config"
	"digital.vasic.lnmtl/internal/llm"
	"digital.vasic.lnmtl/internal/logging"
	"digital.vasic.lnmtl/internal/prompt"
	"digital.vasic.lnmtl/internal/vectorstore"
)

// New wires up one run's collaborators: the LLM client, bible registry,
// prompt loader, and the four RAG stores C5 may consult. Three
// (English, Sino-Vietnamese, Vietnamese-grammar) guide the prompt; the
// ai_ism store runs against the output in C5's post-checks.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*Orchestrator, error) {
	llmClient, err := llm.New(ctx, cfg.LLM, log)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: construct llm client: %w", err)
	}
	llmClient.SetEmbeddingModel(cfg.RAG.EmbeddingModel)

	bibleRegistry, err := bible.Open(cfg.Bible, log)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open bible registry: %w", err)
	}

	promptDir := filepath.Join(cfg.WorkDir, "prompts")
	promptLoader, err := prompt.NewLoader(promptDir)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load prompts: %w", err)
	}

	englishStore, err := openStore(ctx, cfg, vectorstore.KindEnglish, "english_patterns.json", llmClient, log)
	if err != nil {
		return nil, err
	}
	sinoStore, err := openStore(ctx, cfg, vectorstore.KindSinoVietnamese, "sino_vietnamese.json", llmClient, log)
	if err != nil {
		return nil, err
	}
	viGrammarStore, err := openStore(ctx, cfg, vectorstore.KindVietnameseGrammar, "vietnamese_grammar.json", llmClient, log)
	if err != nil {
		return nil, err
	}
	aiIsmStore, err := openStore(ctx, cfg, vectorstore.KindAIIsm, "ai_isms.json", llmClient, log)
	if err != nil {
		return nil, err
	}

	processor := chapter.New(llmClient, chapter.Stores{
		English:           englishStore,
		SinoVietnamese:    sinoStore,
		VietnameseGrammar: viGrammarStore,
		AIIsm:             aiIsmStore,
	}, log)

	return &Orchestrator{
		cfg:       cfg,
		log:       log,
		llmClient: llmClient,
		bibles:    bibleRegistry,
		prompts:   promptLoader,
		processor: processor,
		stores:    []*vectorstore.Store{englishStore, sinoStore, viGrammarStore, aiIsmStore},
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, kind vectorstore.Kind, sourceFile string, embedder vectorstore.Embedder, log logging.Logger) (*vectorstore.Store, error) {
	dbPath := filepath.Join(cfg.RAG.StoreDir, string(kind)+".db")
	sourcePath := filepath.Join(cfg.RAG.StoreDir, sourceFile)
	vcfg := vectorstore.DefaultConfig(kind)
	vcfg.NegativeAnchorThreshold = cfg.RAG.NegativeThreshold
	vcfg.NegativeAnchorPenalty = cfg.RAG.NegativePenalty
	vcfg.LogThreshold = cfg.RAG.LogThreshold
	vcfg.GenreMismatchFactor = cfg.RAG.GenreMismatchFactor

	store, err := vectorstore.Open(ctx, vcfg, dbPath, sourcePath, int32(cfg.RAG.EmbeddingDimensions), embedder, log)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open %s store: %w", kind, err)
	}
	return store, nil
}

// Close releases every long-lived resource this Orchestrator opened.
func (o *Orchestrator) Close() {
	for _, s := range o.stores {
		if s != nil {
			_ = s.Close()
		}
	}
}
