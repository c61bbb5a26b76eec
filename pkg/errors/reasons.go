package errors

// Reason is the stable, machine-readable cause of a business failure.
type Reason string

const (
	ReasonClientNotFound            Reason = "CLIENT_NOT_FOUND"
	ReasonProductNotFound           Reason = "PRODUCT_NOT_FOUND"
	ReasonInsufficientQuantity      Reason = "PRODUCT_QUANTITY_MISMATCH"
	ReasonSellerNotFound            Reason = "SELLER_NOT_FOUND"
	ReasonOrderNotFound             Reason = "ORDER_NOT_FOUND"
	ReasonRefundNotFound            Reason = "REFUND_NOT_FOUND"
	ReasonCanOnlyCancelPending      Reason = "CAN_ONLY_CANCEL_PENDING_ORDERS"
	ReasonCanOnlyCancelPaid         Reason = "CAN_ONLY_CANCEL_PAID_ORDERS"
	ReasonCanOnlyRetryPaymentError  Reason = "CAN_ONLY_RETRY_PAYMENT_ERROR_ORDERS"
	ReasonCancellationWindowExpired Reason = "CANCELLATION_WINDOW_EXPIRED"
	ReasonOrderStateChanged         Reason = "ORDER_STATE_CHANGED"
	ReasonTransitionNotAllowed      Reason = "TRANSITION_NOT_ALLOWED"
	ReasonRefundAlreadyExists       Reason = "REFUND_ALREADY_EXISTS"
)
