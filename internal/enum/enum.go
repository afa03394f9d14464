package enum

// ── Group A: Order lifecycle (owned by the Cleanup backend) ──

const (
	OrderStatusReceived  = "received"
	OrderStatusInProcess = "in_process"
	OrderStatusProcessed = "processed"
	OrderStatusInStore   = "in_store"
	OrderStatusDelivered = "delivered"
)

const (
	ActionWashed                = "washed"
	ActionIroned                = "ironed"
	ActionPacked                = "packed"
	ActionDeliver               = "deliver"
	ActionCreateDeliveryChallan = "create_delivery_challan"
	ActionCreateRewash          = "create_rewash"
	ActionCreateReturnChallan   = "create_return_challan"
	ActionCreateOrder           = "create_order"
	ActionEditOrder             = "edit_order"
)

// ── Group B: Dashboard roles ──

const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleOperator = "operator"
	RoleWasher   = "washer"
	RoleIroner   = "ironer"
	RolePacker   = "packer"
)

// ── Group C: Pricing inputs (sent verbatim to the backend) ──

const (
	PackageExecutive = "executive"
	PackageEconomy   = "economy"
)

const (
	InstallmentFull = "full"
	InstallmentHalf = "half"
	InstallmentNil  = "nil"
)

const (
	PaymentModeCash = "cash"
	PaymentModeCard = "card"
	PaymentModeUPI  = "upi"
)

// ── Group D: Journal outcomes ──

const (
	OutcomeOK          = "ok"
	OutcomeRejected    = "rejected"
	OutcomeUnreachable = "unreachable"
)
