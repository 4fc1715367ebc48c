package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldEnvelopeID    = "envelope_id"
	FieldEnvelopeName  = "envelope_name"
	FieldTransactionID = "transaction_id"
	FieldType          = "transaction_type"
	FieldAmountCents   = "amount_cents"
	FieldDescription   = "description"
	FieldDriftCents    = "drift_cents"
	FieldCount         = "count"
	FieldExportRef     = "export_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentViews   = "views"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpIncome    = "income"
	OpTransfer  = "transfer"
	OpSpend     = "spend"
	OpReconcile = "reconcile"
	OpSync      = "sync"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)
