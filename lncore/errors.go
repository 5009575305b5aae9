package lncore

import "errors"

// Errors surfaced to users of the node.  Callers match them with errors.Is,
// the node may wrap them with extra context.
var (
	// lifecycle
	ErrAlreadyRunning = errors.New("node is already running")
	ErrNotRunning     = errors.New("node is not running")

	// connectivity
	ErrConnectionFailed    = errors.New("network connection closed")
	ErrPeerInfoParseFailed = errors.New("failed to parse the given peer information")

	// input validation
	ErrAddressInvalid     = errors.New("the given address is invalid")
	ErrPublicKeyInvalid   = errors.New("the given public key is invalid")
	ErrPaymentHashInvalid = errors.New("the given payment hash is invalid")
	ErrChannelIdInvalid   = errors.New("the given channel ID is invalid")
	ErrNetworkInvalid     = errors.New("the given network is invalid")
	ErrInvoiceInvalid     = errors.New("the given invoice is invalid")

	// domain
	ErrRoutingFailed         = errors.New("failed to find route")
	ErrChannelCreationFailed = errors.New("failed to create channel")
	ErrChannelClosingFailed  = errors.New("failed to close channel")
	ErrInvoiceCreationFailed = errors.New("failed to create invoice")
	ErrNonUniquePaymentHash  = errors.New("an invoice must not get paid twice")

	// infrastructure
	ErrPersistenceFailed       = errors.New("failed to persist data")
	ErrWalletOperationFailed   = errors.New("failed to conduct wallet operation")
	ErrWalletSigningFailed     = errors.New("failed to sign given transaction")
	ErrTxSyncFailed            = errors.New("failed to sync transactions")
	ErrFundingTxCreationFailed = errors.New("funding transaction could not be created")
)
