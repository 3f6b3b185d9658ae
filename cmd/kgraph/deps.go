package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dfattal/kgraph"
	"github.com/dfattal/kgraph/helper"
	"github.com/dfattal/kgraph/llm"
)

// defaultEmbeddingDim matches the all-MiniLM family used by most local
// embedding setups. Override with KGRAPH_EMBEDDING_DIM.
const defaultEmbeddingDim = 384

// withKGraph builds a connected KGraph from the environment, wires an LLM
// client when one is configured, and handles cleanup.
func withKGraph(fn func(*kgraph.KGraph) error) error {
	// Optional .env, the environment itself wins
	_ = godotenv.Load()

	config, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return fmt.Errorf("loading database configuration: %w", err)
	}

	dim := defaultEmbeddingDim
	if raw := os.Getenv("KGRAPH_EMBEDDING_DIM"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid KGRAPH_EMBEDDING_DIM %q", raw)
		}
		dim = parsed
	}

	k, err := kgraph.NewKGraph(config, dim)
	if err != nil {
		return fmt.Errorf("connecting kgraph: %w", err)
	}
	defer k.Close()

	client, err := llmFromEnv()
	if err != nil {
		return err
	}
	if client != nil {
		k.SetLLMClient(client)
	}

	return fn(k)
}

// llmFromEnv builds an extraction client from KGRAPH_LLM_PROVIDER. An empty
// provider leaves the pipeline on pattern extraction only. API keys come
// from the provider's usual environment variables.
func llmFromEnv() (llm.Client, error) {
	provider := strings.ToLower(os.Getenv("KGRAPH_LLM_PROVIDER"))
	model := os.Getenv("KGRAPH_LLM_MODEL")

	switch provider {
	case "":
		return nil, nil
	case "anthropic":
		client, err := llm.NewAnthropicClient(llm.AnthropicConfig{Model: model})
		if err != nil {
			return nil, fmt.Errorf("creating anthropic client: %w", err)
		}
		return client, nil
	case "openai":
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			Model:   model,
			BaseURL: os.Getenv("KGRAPH_LLM_BASE_URL"),
		})
		if err != nil {
			return nil, fmt.Errorf("creating openai client: %w", err)
		}
		return client, nil
	}

	return nil, fmt.Errorf("unknown KGRAPH_LLM_PROVIDER %q (valid: openai, anthropic)", provider)
}
