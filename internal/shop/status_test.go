package shop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to CheckoutState
		want     bool
	}{
		{StateCartValidated, StateSessionCreated, true},
		{StateSessionCreated, StatePaymentConfirmed, true},
		{StatePaymentConfirmed, StateOrderMaterialized, true},
		{StatePaymentConfirmed, StatePaymentConfirmed, true},
		{StateCartValidated, StateOrderMaterialized, false},
		{StateSessionCreated, StateOrderMaterialized, false},
		{StateOrderMaterialized, StatePaymentConfirmed, false},
		{StateOrderMaterialized, StateOrderMaterialized, false},
		{CheckoutState("UNKNOWN"), StateSessionCreated, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
