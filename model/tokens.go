package model

import "github.com/pkoukk/tiktoken-go"

// CountTokens estimates the token count of text with the cl100k tokenizer.
// Falls back to a characters/4 estimate if the encoding cannot be loaded.
func CountTokens(text string) int {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
