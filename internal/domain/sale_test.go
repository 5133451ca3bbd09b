package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPayment(t *testing.T) {
	assert.True(t, ValidPayment("cash"))
	assert.True(t, ValidPayment("card"))
	assert.True(t, ValidPayment("mobile-wallet"))

	assert.False(t, ValidPayment("wallet"))
	assert.False(t, ValidPayment("cheque"))
	assert.False(t, ValidPayment(""))
}

func TestSaleItemsColumnRoundTrip(t *testing.T) {
	items := SaleItems{
		{ProductID: 7, Name: "Pain", Price: 0.5, Quantity: 2},
	}
	value, err := items.Value()
	require.NoError(t, err)

	var decoded SaleItems
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, items, decoded)

	var empty SaleItems
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)
}
