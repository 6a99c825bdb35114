package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionKindValid(t *testing.T) {
	assert.True(t, KindCredit.Valid())
	assert.True(t, KindDebit.Valid())
	assert.False(t, TransactionKind("").Valid())
	assert.False(t, TransactionKind("transfer").Valid())
	assert.False(t, TransactionKind("Credit").Valid())
}

func TestServiceErrorMessage(t *testing.T) {
	err := &ServiceError{Code: ErrCodeNotFound, Message: "project not found"}
	assert.Equal(t, "project not found", err.Error())
}
