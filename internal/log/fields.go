package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldMessageID  = "message_id"
	FieldQuery      = "query"
	FieldPeriod     = "period"
	FieldPeriods    = "periods"
	FieldPayee      = "payee"
	FieldAmount     = "amount"
	FieldCount      = "count"
	FieldSnapshot   = "snapshot"
	FieldCachedAt   = "cached_at"
	FieldPath       = "path"
	FieldSkipReason = "skip_reason"
	FieldMode       = "mode"
	FieldDistinct   = "distinct"

	// Snapshot and coverage bookkeeping
	FieldCachedDropped = "cached_dropped"
	FieldNewDropped    = "new_dropped"
	FieldFloor         = "floor"
	FieldInRange       = "in_range"
	FieldCached        = "cached"
	FieldMissing       = "missing"

	FieldCharset       = "charset"
	FieldConfidence    = "confidence"
	FieldSize          = "size"
	FieldSchemaVersion = "schema_version"
	FieldPages         = "pages"
	FieldExchange      = "exchange"
	FieldQueue         = "queue"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentExtract  = "extract"
	ComponentDecode   = "decode"
	ComponentSnapshot = "snapshot"
	ComponentCoverage = "coverage"
	ComponentFetch    = "fetch"
	ComponentGmail    = "gmail"
	ComponentMailbox  = "mailbox"
	ComponentLedger   = "ledger"
	ComponentAMQP     = "amqp"
	ComponentBackend  = "backend"
	ComponentConfig   = "config"
)

// Operations defines standard operation names
const (
	OpList    = "list"
	OpGet     = "get"
	OpExtract = "extract"
	OpLoad    = "load"
	OpWrite   = "write"
	OpDelete  = "delete"
	OpPlan    = "plan"
	OpRecord  = "record"
	OpPublish = "publish"
	OpRender  = "render"
)
