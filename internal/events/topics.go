package events

// Topic constants for domain events emitted by the registers.
const (
	TopicSaleCommitted = "sale.committed"
	TopicStockWarning  = "sale.stock_warning"
	TopicPointsAccrued = "customer.points_accrued"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicSaleCommitted,
		TopicStockWarning,
		TopicPointsAccrued,
	}
}
