package retrieval

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"rag-assistant/internal/infra/metrics"

	"github.com/rivo/uniseg"
)

// wordPattern matches one word: a run of letters, digits, marks or underscores.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}\p{M}_]+`)

// BudgetConfig holds context budgeting parameters.
type BudgetConfig struct {
	WordLimit int
}

// AssembleContext renders the prompt for the ranked documents and bounds it
// to the word budget (Stage 5).
func AssembleContext(sc *StageContext, builder PromptBuilder, cfg BudgetConfig, logger *slog.Logger) {
	rendered := builder.Build(sc.Query, sc.Ranked)
	sc.Prompt = TruncateToWordLimit(rendered, cfg.WordLimit)

	before, after := CountWords(rendered), CountWords(sc.Prompt)
	if after < before {
		metrics.RecordContextTruncation()
		logger.Warn("context_truncated",
			slog.String("retrieval_id", sc.RetrievalID),
			slog.Int("word_count", before),
			slog.Int("kept_word_count", after),
			slog.Int("word_limit", cfg.WordLimit))
		return
	}
	logger.Info("context_assembled",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("document_count", len(sc.Ranked)),
		slog.Int("word_count", before))
}

// CountWords returns the number of words in text.
func CountWords(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// TruncateToWordLimit returns text unchanged when it has at most wordLimit
// words. Otherwise it returns the longest prefix made of whole sentences
// whose word count stays within the limit, right-trimmed. When even the
// first sentence is over the limit the text is cut after the
// wordLimit-th word. A non-positive wordLimit disables truncation.
//
// The result always has at most wordLimit words, so applying the function
// twice gives the same result as applying it once.
func TruncateToWordLimit(text string, wordLimit int) string {
	if wordLimit <= 0 || CountWords(text) <= wordLimit {
		return text
	}

	end, words := 0, 0
	rest, state := text, -1
	for len(rest) > 0 {
		var sentence string
		sentence, rest, state = uniseg.FirstSentenceInString(rest, state)
		n := CountWords(sentence)
		if words+n > wordLimit {
			break
		}
		words += n
		end += len(sentence)
	}

	if words == 0 {
		idx := wordPattern.FindAllStringIndex(text, wordLimit)
		return text[:idx[len(idx)-1][1]]
	}
	return strings.TrimRightFunc(text[:end], unicode.IsSpace)
}
