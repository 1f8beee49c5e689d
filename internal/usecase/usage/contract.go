package usage

import embeddinguc "github.com/kailas-cloud/shopsearch/internal/usecase/embedding"

// BudgetReader provides read-only access to token budget state.
type BudgetReader interface {
	Status() embeddinguc.BudgetStatus
}
