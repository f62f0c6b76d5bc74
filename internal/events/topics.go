package events

// Topic constants for domain events emitted by the platform.
const (
	TopicSessionCreated    = "checkout.session_created"
	TopicOrderReconciled   = "order.reconciled"
	TopicHandoffIssued     = "handoff.issued"
	TopicImplicitSelection = "cart.implicit_selection"
)
