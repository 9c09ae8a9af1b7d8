package embedding

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// TextEncoder produces model input ids for one text. *tokenizer.Tokenizer implements it.
type TextEncoder interface {
	EncodeSingle(input string, addSpecialTokensOpt ...bool) (*tokenizer.Encoding, error)
}

// LoadTokenizer reads a Hugging Face tokenizer.json. Model families the library does not
// support fail here, before any inference session is created.
func LoadTokenizer(path string) (tk *tokenizer.Tokenizer, err error) {
	defer func() {
		if r := recover(); r != nil {
			tk, err = nil, fmt.Errorf("unsupported tokenizer %s: %v", path, r)
		}
	}()
	tk, err = pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", path, err)
	}
	return tk, nil
}

// encodeRow tokenizes text with special tokens into one zeroed input row. When the
// encoding is longer than the row it keeps the leading tokens and the final special
// token. Returns the number of positions used.
func encodeRow(enc TextEncoder, text string, inputIDs, attentionMask, tokenTypeIDs []int64) (int, error) {
	e, err := enc.EncodeSingle(text, true)
	if err != nil {
		return 0, fmt.Errorf("tokenize: %w", err)
	}
	n := len(inputIDs)
	ids := e.Ids
	if len(ids) == 0 || n == 0 {
		return 0, nil
	}
	used := min(len(ids), n)
	for i := 0; i < used; i++ {
		src := i
		if i == used-1 {
			src = len(ids) - 1
		}
		inputIDs[i] = int64(ids[src])
		attentionMask[i] = 1
		if src < len(e.AttentionMask) {
			attentionMask[i] = int64(e.AttentionMask[src])
		}
		if tokenTypeIDs != nil && src < len(e.TypeIds) {
			tokenTypeIDs[i] = int64(e.TypeIds[src])
		}
	}
	return used, nil
}
