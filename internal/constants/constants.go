package constants

// Payment status constants
const (
	PaymentStatusPending           = "pending"
	PaymentStatusProcessing        = "processing"
	PaymentStatusSuccess           = "success"
	PaymentStatusFailed            = "failed"
	PaymentStatusExpired           = "expired"
	PaymentStatusRefunded          = "refunded"
	PaymentStatusPartiallyRefunded = "partially_refunded"
)

// Payment provider code constants
const (
	ProviderWave        = "wave"
	ProviderOrange      = "orange"
	ProviderMTNMoMo     = "mtn_momo"
	ProviderFlutterwave = "flutterwave"
	ProviderPaystack    = "paystack"
	ProviderCinetPay    = "cinetpay"
	ProviderPayDunya    = "paydunya"
	ProviderCash        = "cash"
)

// Payment interaction mode constants
const (
	PaymentInteractionRedirect = "redirect"
	PaymentInteractionPush     = "push"
	PaymentInteractionCash     = "cash"
)

// Payment error code constants
const (
	ErrorCodeNetwork          = "network_error"
	ErrorCodeProviderDeclined = "provider_declined"
	ErrorCodeConfigInvalid    = "config_invalid"
)

// Cash drawer session status constants
const (
	DrawerSessionOpen   = "open"
	DrawerSessionClosed = "closed"
)

// Refund type constants
const (
	RefundTypeFull    = "full"
	RefundTypePartial = "partial"
	RefundTypeManual  = "manual_required"
)

// Queue and task name constants
const (
	QueueDefault  = "default"
	QueueCritical = "critical"

	TaskPaymentWebhook    = "payment:webhook"
	TaskPaymentStatusPoll = "payment:status_poll"
)
