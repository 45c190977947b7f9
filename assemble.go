package agent

// CategoryError is the per-category failure marker carried in a payload
// instead of the data that could not be fetched.
type CategoryError struct {
	Kind   ToolErrorKind `json:"kind"`
	Detail string        `json:"detail,omitempty"`
}

// CategoryResult holds either fetched data or an error marker, never both.
type CategoryResult struct {
	Data  any            `json:"data,omitempty"`
	Error *CategoryError `json:"error,omitempty"`
}

// FinalPayload is the single combined answer for a completed turn.
// Categories the user did not select are omitted entirely.
type FinalPayload struct {
	Location   *ResolvedLocation           `json:"location,omitempty"`
	Categories map[Category]CategoryResult `json:"categories,omitempty"`
	AllFailed  bool                        `json:"allFailed,omitempty"`
}

// Assemble merges per-category tool results into one well-formed payload.
// Pure: identical inputs always produce identical output, and a fully
// failed input still assembles cleanly with AllFailed set.
func Assemble(location *ResolvedLocation, results map[Category]ToolResult) FinalPayload {
	payload := FinalPayload{Location: location}
	if len(results) == 0 {
		return payload
	}

	payload.Categories = make(map[Category]CategoryResult, len(results))
	failed := 0
	for category, res := range results {
		if res.OK() {
			payload.Categories[category] = CategoryResult{Data: res.Payload}
			continue
		}
		failed++
		marker := &CategoryError{Kind: ErrKindHandlerError}
		if res.Err != nil {
			marker.Kind = res.Err.Kind
			marker.Detail = res.Err.Detail
		} else if res.Status == StatusTimedOut {
			marker.Kind = ErrKindTimedOut
		}
		payload.Categories[category] = CategoryResult{Error: marker}
	}
	payload.AllFailed = failed == len(results)
	return payload
}
