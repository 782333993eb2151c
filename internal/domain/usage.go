package domain

// TokenUsage — накопленное потребление токенов LLM в рамках одного
// execution.
//
// Счётчики монотонно неубывающие: добавляются на каждый ответ
// gateway с usage, никогда не сбрасываются в середине запуска.
// Итоговые значения прикрепляются к терминальной записи execution.
type TokenUsage struct {
	// PromptTokens — токены промптов.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens — токены ответов.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens — сумма prompt + completion.
	TotalTokens int `json:"total_tokens"`

	// EstimatedCost — оценка стоимости в долларах.
	// Линейная функция от токенов по фиксированным ставкам
	// за тысячу токенов (отдельно prompt и completion).
	EstimatedCost float64 `json:"estimated_cost"`
}

// CostRates — ставки стоимости за 1000 токенов.
type CostRates struct {
	// PromptPer1K — стоимость 1000 prompt-токенов.
	PromptPer1K float64

	// CompletionPer1K — стоимость 1000 completion-токенов.
	CompletionPer1K float64
}

// Add добавляет потребление одного ответа gateway и пересчитывает
// стоимость по ставкам.
func (u *TokenUsage) Add(promptTokens, completionTokens int, rates CostRates) {
	u.PromptTokens += promptTokens
	u.CompletionTokens += completionTokens
	u.TotalTokens += promptTokens + completionTokens
	u.EstimatedCost += float64(promptTokens)/1000*rates.PromptPer1K +
		float64(completionTokens)/1000*rates.CompletionPer1K
}
