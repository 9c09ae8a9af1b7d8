package embedding

import (
	"fmt"
	"slices"
)

// tensorInfo is the name and shape of a model input or output. Dynamic axes are -1.
type tensorInfo struct {
	Name string
	Dims []int64
}

// modelLayout is how the session binds to a model.
type modelLayout struct {
	output     string
	pooled     bool
	tokenTypes bool
}

// inspectModel picks the output to bind and whether token_type_ids is fed. A
// "sentence_embedding" [batch, dims] output is preferred over "last_hidden_state"
// [batch, seq, dims], which is mean-pooled.
func inspectModel(inputs, outputs []tensorInfo, dims int) (modelLayout, error) {
	var layout modelLayout
	has := func(name string) bool {
		return slices.ContainsFunc(inputs, func(t tensorInfo) bool { return t.Name == name })
	}
	if !has("input_ids") || !has("attention_mask") {
		return layout, fmt.Errorf("model inputs %v lack input_ids or attention_mask", names(inputs))
	}
	layout.tokenTypes = has("token_type_ids")

	if len(outputs) == 0 {
		return layout, fmt.Errorf("model has no outputs")
	}
	out := outputs[0]
	for _, want := range []string{"sentence_embedding", "last_hidden_state"} {
		if i := slices.IndexFunc(outputs, func(t tensorInfo) bool { return t.Name == want }); i >= 0 {
			out = outputs[i]
			break
		}
	}
	switch len(out.Dims) {
	case 2:
	case 3:
		layout.pooled = true
	default:
		return layout, fmt.Errorf("output %q has rank %d, want 2 or 3", out.Name, len(out.Dims))
	}
	if last := out.Dims[len(out.Dims)-1]; last > 0 && int(last) != dims {
		return layout, fmt.Errorf("output %q has %d dimensions, embedding.dimensions is %d", out.Name, last, dims)
	}
	layout.output = out.Name
	return layout, nil
}

func names(list []tensorInfo) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.Name
	}
	return out
}
