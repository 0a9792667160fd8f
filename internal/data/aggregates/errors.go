package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/authz"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
)

// Sentinels let aggregate code tag a plain error with its class; MapError turns the
// tag into the public code.
var (
	ErrValidation = errors.New("aggregate validation")
	ErrInvariant  = errors.New("aggregate invariant violation")
	ErrConflict   = errors.New("aggregate conflict")
	ErrRetryable  = errors.New("aggregate retryable")
)

func tagged(sentinel error, msg string) error {
	return errors.Join(sentinel, errors.New(strings.TrimSpace(msg)))
}

// ValidationError is a bad quantity, price, address or other caller input.
func ValidationError(msg string) error { return tagged(ErrValidation, msg) }

// InvariantError is a stored state that breaks a rule, e.g. a negative stock row.
func InvariantError(msg string) error { return tagged(ErrInvariant, msg) }

// ConflictError is a lost compare-and-set on an order, product or payment row.
func ConflictError(msg string) error { return tagged(ErrConflict, msg) }

func RetryableError(msg string) error { return tagged(ErrRetryable, msg) }

var sentinelCodes = []struct {
	target error
	code   domainagg.ErrorCode
}{
	{ErrValidation, domainagg.CodeValidation},
	{ErrInvariant, domainagg.CodeInvariantViolation},
	{ErrConflict, domainagg.CodeConflict},
	{ErrRetryable, domainagg.CodeRetryable},
	{authz.ErrDenied, domainagg.CodeUnauthorized},
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{gorm.ErrDuplicatedKey, domainagg.CodeConflict},
	{gorm.ErrForeignKeyViolated, domainagg.CodePreconditionFailed},
	{gorm.ErrCheckConstraintViolated, domainagg.CodeInvariantViolation},
	{context.Canceled, domainagg.CodeRetryable},
	{context.DeadlineExceeded, domainagg.CodeRetryable},
}

// postgres SQLSTATEs that carry a meaning for the order and inventory tables.
var pgStateCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation: second shipment or pending payment
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation: unknown product or order
	"23514": domainagg.CodeInvariantViolation, // check_violation: stock or quantity below bound
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// sqlite reports constraint failures only through the message text.
var messageCodes = []struct {
	needle string
	code   domainagg.ErrorCode
}{
	{"unique constraint failed", domainagg.CodeConflict},
	{"duplicate key", domainagg.CodeConflict},
	{"already exists", domainagg.CodeConflict},
	{"check constraint failed", domainagg.CodeInvariantViolation},
	{"foreign key constraint failed", domainagg.CodePreconditionFailed},
	{"database is locked", domainagg.CodeRetryable},
	{"deadlock", domainagg.CodeRetryable},
	{"serialization", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
	{"temporar", domainagg.CodeRetryable},
}

// MapError wraps err as a *domainagg.Error for operation op. Errors that already
// carry a code, such as a stock shortage, pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	var transition *commerce.TransitionError
	if errors.As(err, &transition) {
		return domainagg.CodeInvalidStateTransition
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.target) {
			return s.code
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgStateCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range messageCodes {
		if strings.Contains(msg, m.needle) {
			return m.code
		}
	}
	return domainagg.CodeInternal
}
