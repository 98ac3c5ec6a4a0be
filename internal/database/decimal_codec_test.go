package database

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type priced struct {
	Price   decimal.Decimal  `bson:"price"`
	Compare *decimal.Decimal `bson:"compare,omitempty"`
}

func TestDecimalCodec_StoredAsDecimal128(t *testing.T) {
	reg := NewRegistry()
	compare := decimal.RequireFromString("24999.00")
	in := priced{Price: decimal.RequireFromString("18999.50"), Compare: &compare}

	data, err := bson.MarshalWithRegistry(reg, in)
	require.NoError(t, err)
	assert.Equal(t, bsontype.Decimal128, bson.Raw(data).Lookup("price").Type)

	var out priced
	require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out))
	assert.True(t, in.Price.Equal(out.Price))
	require.NotNil(t, out.Compare)
	assert.True(t, compare.Equal(*out.Compare))
}

func TestDecimalCodec_DecodesLegacyNumbers(t *testing.T) {
	reg := NewRegistry()

	cases := []struct {
		doc  bson.M
		want string
	}{
		{bson.M{"price": 12.5}, "12.5"},
		{bson.M{"price": int32(7)}, "7"},
		{bson.M{"price": int64(1200)}, "1200"},
		{bson.M{"price": "99.99"}, "99.99"},
	}
	for _, tc := range cases {
		data, err := bson.Marshal(tc.doc)
		require.NoError(t, err)

		var out priced
		require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out))
		assert.True(t, decimal.RequireFromString(tc.want).Equal(out.Price), tc.want)
	}
}

func TestDecimalCodec_RejectsBool(t *testing.T) {
	data, err := bson.Marshal(bson.M{"price": true})
	require.NoError(t, err)

	var out priced
	assert.Error(t, bson.UnmarshalWithRegistry(NewRegistry(), data, &out))
}
