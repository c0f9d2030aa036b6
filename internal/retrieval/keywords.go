package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/ai"
)

const maxKeywords = 20

// KeywordExtractor derives a small set of salient terms from a passage via
// a chat provider. Best-effort throughout: any failure yields an empty set
// and a warning, never an error, because keyword tagging must not abort
// the request it rides on. Term choice is not reproducible across provider
// versions; only count bounds and non-emptiness are guaranteed.
type KeywordExtractor struct {
	chatter ai.IChatter
	timeout time.Duration
}

func NewKeywordExtractor(chatter ai.IChatter, timeout time.Duration) *KeywordExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &KeywordExtractor{chatter: chatter, timeout: timeout}
}

// Extract returns up to target keywords, deduplicated case-insensitively
// preserving first occurrence.
func (k *KeywordExtractor) Extract(ctx context.Context, text string, target int) []string {
	if k == nil || k.chatter == nil {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if target <= 0 {
		target = 7
	}
	if target > maxKeywords {
		target = maxKeywords
	}
	prompt := fmt.Sprintf(`You are a keyword extraction assistant.
From the text below, extract up to %d salient keywords.
- Keywords should be short phrases (1-3 words).
- Return a JSON array of strings only. No extra text.
- Use the same language as the content.

TEXT:
%s`, target, text)

	callCtx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	res, err := k.chatter.Chat(callCtx, []ai.ChatMessage{{Role: ai.RoleUser, Content: prompt}})
	if err != nil {
		logutil.GetLogger(ctx).Warn("keyword extraction failed", zap.Error(err))
		return nil
	}
	terms, err := parseKeywords(res, target)
	if err != nil {
		logutil.GetLogger(ctx).Warn("keyword reply not parsable", zap.Error(err))
		return nil
	}
	return terms
}

// parseKeywords pulls a JSON string array out of a possibly noisy model
// reply. Code fences and surrounding prose are tolerated.
func parseKeywords(output string, target int) ([]string, error) {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "[")
	end := strings.LastIndex(clean, "]")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}

	var terms []string
	if err := json.Unmarshal([]byte(clean), &terms); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}
	uniq := make([]string, 0, len(terms))
	seen := make(map[string]bool)
	for _, term := range terms {
		normalized := strings.TrimSpace(term)
		if normalized == "" {
			continue
		}
		key := strings.ToLower(normalized)
		if seen[key] {
			continue
		}
		seen[key] = true
		uniq = append(uniq, normalized)
		if len(uniq) >= target {
			break
		}
	}
	if len(uniq) == 0 {
		return nil, fmt.Errorf("no keywords found")
	}
	return uniq, nil
}
