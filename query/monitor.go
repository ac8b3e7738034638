package query

import "github.com/tmc/langchaingo/schema"

// Monitor provides hooks to observe a query as it moves through the pipeline.
type Monitor interface {
	Start(message string)
	AfterRetrieval(docs []schema.Document)
	AfterAugment(prompt string)
	Finish(answer string, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                    {}
func (n *noopMonitor) AfterRetrieval(_ []schema.Document) {}
func (n *noopMonitor) AfterAugment(_ string)              {}
func (n *noopMonitor) Finish(_ string, _ error)           {}
