package retrieval

import (
	"errors"
	"fmt"

	"github.com/siherrmann/retriever/model"
)

// ErrStoreUnavailable marks a store call that failed or timed out. Store
// adapters wrap it so the engine can decide whether degradation applies.
var ErrStoreUnavailable = errors.New("store unavailable")

// RetrievalUnavailableError is surfaced when no answer at all is
// possible: the passage store is down for a query that needs evidence and
// no aggregate fallback exists. A conversational caller cannot silently
// receive nothing, so this is an explicit error, not an empty result.
type RetrievalUnavailableError struct {
	QueryType model.QueryType
	Err       error
}

func (e *RetrievalUnavailableError) Error() string {
	return fmt.Sprintf("retrieval unavailable for %s query: %v", e.QueryType, e.Err)
}

func (e *RetrievalUnavailableError) Unwrap() error {
	return e.Err
}
