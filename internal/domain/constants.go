package domain

// Transaction kinds. "recibido" is the counterpart row written for the
// recipient of a transfer; "recarga" rows written by the audit worker carry
// a bulk recharge reference.
const (
	TxKindRecharge     = "recarga"
	TxKindSend         = "envio"
	TxKindReceive      = "recibido"
	TxKindWithdraw     = "retiro"
	TxKindBulkRecharge = "recarga_masiva"
	TxKindCommission   = "comision"
)

const (
	TxStatusPending  = "pendiente"
	TxStatusApproved = "aprobado"
	TxStatusRejected = "rechazado"
)

const (
	RequestPending  = "pendiente"
	RequestAccepted = "aceptado"
	RequestRejected = "rechazado"
)

const (
	BulkProcessing = "procesando"
	BulkCompleted  = "completado"
	BulkFailed     = "fallido"
)

const (
	WithdrawalPending  = "pendiente"
	WithdrawalApproved = "completado"
	WithdrawalRejected = "rechazado"
)

// MaxChildren is the fan-out of the placement tree. Each member has three
// child slots, filled left to right and never reassigned.
const MaxChildren = 3

// Notification event types pushed over the live channel.
const (
	EventCommission  = "COMMISSION"
	EventRecharge    = "RECHARGE"
	EventTransferIn  = "TRANSFER_IN"
	EventWithdrawal  = "WITHDRAWAL_RESOLVED"
	EventForceLogout = "FORCE_LOGOUT"
)
