package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// EstimateTokens оценивает число токенов через cl100k_base.
// Для Gemini и локальных моделей это приближение, точнее у нас ничего нет.
// Возвращает 0, если токенизатор недоступен.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err == nil {
			enc = e
		}
	})
	if enc == nil {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}
