package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

// Dump flattens an error chain for structured logs, pulling Postgres fields when present.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	if pgxErr := pgxError(err); pgxErr != nil {
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
		return d
	}
	if pqErr := pqError(err); pqErr != nil {
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}
	return d
}

// IsUniqueViolation reports whether err is a unique constraint violation from
// any of the supported drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if pgxErr := pgxError(err); pgxErr != nil {
		return pgxErr.Code == pgUniqueViolation
	}
	if pqErr := pqError(err); pqErr != nil {
		return string(pqErr.Code) == pgUniqueViolation
	}
	// sqlite reports constraint failures only through the message text.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func pgxError(err error) *pgconn.PgError {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr
	}
	return nil
}

func pqError(err error) *pq.Error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr
	}
	return nil
}
