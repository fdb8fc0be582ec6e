package domain

import (
	"github.com/allisson/edibox/internal/errors"
)

// Lifecycle errors.
var (
	// ErrTransactionNotFound indicates no transaction exists with the given id.
	ErrTransactionNotFound = errors.Wrap(errors.ErrNotFound, "transaction not found")

	// ErrInvalidStage indicates a stage outside the closed set.
	ErrInvalidStage = errors.Wrap(errors.ErrInvalidInput, "invalid stage")

	// ErrInvalidStatus indicates an unknown status or one that cannot be set directly.
	ErrInvalidStatus = errors.Wrap(errors.ErrInvalidInput, "invalid status")

	// ErrInvalidCreateStage indicates creation outside intake and outbox.
	ErrInvalidCreateStage = errors.Wrap(errors.ErrInvalidState, "transactions can only be created in intake or outbox")

	// ErrNotEditable indicates an update outside intake and outbox.
	ErrNotEditable = errors.Wrap(errors.ErrInvalidState, "transaction can only be edited in intake or outbox")

	// ErrSameStage indicates a move to the stage the transaction already sits in.
	ErrSameStage = errors.Wrap(errors.ErrInvalidState, "transaction is already in the target stage")

	// ErrInvalidTargetStage indicates a move toward a stage outside the closed set.
	ErrInvalidTargetStage = errors.Wrap(errors.ErrInvalidState, "invalid target stage")

	// ErrMoveFromDiscarded indicates a move attempted on a discarded transaction.
	ErrMoveFromDiscarded = errors.Wrap(errors.ErrInvalidState, "discarded transactions must be restored instead of moved")

	// ErrNotInIntake indicates accept attempted outside intake.
	ErrNotInIntake = errors.Wrap(errors.ErrInvalidState, "only intake transactions can be accepted")

	// ErrNotSendable indicates send attempted outside outbox or from a non-sendable status.
	ErrNotSendable = errors.Wrap(errors.ErrInvalidState, "transaction cannot be sent in its current stage or status")

	// ErrNotDiscarded indicates restore attempted on a transaction that is not discarded.
	ErrNotDiscarded = errors.Wrap(errors.ErrInvalidState, "transaction is not discarded")

	// ErrAlreadyDiscarded indicates a soft delete of a discarded transaction.
	ErrAlreadyDiscarded = errors.Wrap(errors.ErrInvalidState, "transaction is already discarded")

	// ErrNotSent indicates acknowledge attempted before the transaction was sent.
	ErrNotSent = errors.Wrap(errors.ErrInvalidState, "only sent transactions can be acknowledged")

	// ErrContentMismatch indicates stored content differs from the recorded hash.
	ErrContentMismatch = errors.Wrap(errors.ErrIntegrity, "content hash does not match record")

	// ErrSendFailed indicates the transmitter rejected the content or timed out.
	ErrSendFailed = errors.Wrap(errors.ErrTransmission, "send failed")

	// ErrSigningDisabled indicates history verification without a configured signing key.
	ErrSigningDisabled = errors.Wrap(errors.ErrInvalidState, "history signing is not configured")

	// ErrSignatureInvalid indicates a history entry whose signature does not match its content.
	ErrSignatureInvalid = errors.Wrap(errors.ErrIntegrity, "history signature is invalid")
)
