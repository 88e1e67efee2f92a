package extract

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-intake/internal/config"
	"github.com/sells-group/invoice-intake/pkg/anthropic"
)

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.ExtractorConfig, acfg config.AnthropicConfig) (Extractor, error) {
	switch cfg.Provider {
	case "command", "":
		return NewCommandExtractor(cfg.Command), nil
	case "http":
		if cfg.URL == "" {
			return nil, eris.New("extract: http provider requires extractor.url")
		}
		return NewHTTPExtractor(cfg.URL, cfg.Timeout()), nil
	case "anthropic":
		if acfg.Key == "" {
			return nil, eris.New("extract: anthropic provider requires anthropic.key")
		}
		return NewClaudeExtractor(anthropic.NewClient(acfg.Key), acfg.Model, acfg.MaxTokens), nil
	default:
		return nil, eris.Errorf("extract: unknown provider %q", cfg.Provider)
	}
}
