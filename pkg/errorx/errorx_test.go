package errorx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{ErrInvalidParam, KindValidation},
		{ErrQuotaExceeded, KindPermissionDenied},
		{ErrSelfAccept, KindPermissionDenied},
		{New(CodeNotFound, "missing"), KindNotFound},
		{New(CodeInvalidTransition, "deleted -> accepted"), KindInvalidTransition},
		{New(CodeDeliveryFailure, "publish"), KindDeliveryFailure},
		{errors.New("plain"), KindInternal},
		{fmt.Errorf("wrapped: %w", ErrRelationshipBlocked), KindPermissionDenied},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, KindOf(tc.err), tc.err.Error())
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(errors.New("boom"), CodePendingLimit, "send rejected")
	assert.True(t, errors.Is(err, ErrPendingLimit))
	assert.False(t, errors.Is(err, ErrHiddenLimit))
	assert.Equal(t, "send rejected: boom", err.Error())
	assert.Equal(t, CodePendingLimit, GetCode(fmt.Errorf("ctx: %w", err)))
	assert.Equal(t, CodeServerBusy, GetCode(errors.New("x")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(CodeNotFound, "conversation")))
	assert.True(t, IsNotFound(errors.New("record not found")))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(ErrServerBusy))
}
