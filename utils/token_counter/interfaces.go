package token_counter

type TokenCounterInterface interface {
	CountTextTokens(text string) int
	CountPromptTokens(systemContext string, query string) int
}
