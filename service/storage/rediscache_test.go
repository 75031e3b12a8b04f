package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherlabs/cypher-indexer/service/decode"
)

func TestRedisCache_GetAccountHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisCacheWithClient(db, testLogger())

	rec := &AccountRecord{Address: "addr1", Slot: 5, Kind: decode.KindMint}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	mock.ExpectGet("account:addr1").SetVal(string(data))

	got, ok, err := cache.GetAccount(context.Background(), "addr1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_GetAccountMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisCacheWithClient(db, testLogger())

	mock.ExpectGet("account:missing").RedisNil()

	got, ok, err := cache.GetAccount(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_GetAccountError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisCacheWithClient(db, testLogger())

	mock.ExpectGet("account:addr1").SetErr(errors.New("connection reset"))

	_, ok, err := cache.GetAccount(context.Background(), "addr1")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCache_SetAccount(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisCacheWithClient(db, testLogger())

	rec := &AccountRecord{Address: "addr1", Slot: 5, Kind: decode.KindToken}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	mock.ExpectSet("account:addr1", data, time.Hour).SetVal("OK")

	require.NoError(t, cache.SetAccount(context.Background(), rec, time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_TransactionRoundTrip(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisCacheWithClient(db, testLogger())

	rec := &TransactionRecord{Signature: "sig1", Slot: 7, Addresses: []string{"a", "b"}}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	mock.ExpectSet("tx:sig1", data, time.Minute).SetVal("OK")
	mock.ExpectGet("tx:sig1").SetVal(string(data))

	require.NoError(t, cache.SetTransaction(context.Background(), rec, time.Minute))

	got, ok, err := cache.GetTransaction(context.Background(), "sig1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_InvalidateAccount(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisCacheWithClient(db, testLogger())

	mock.ExpectDel("account:addr1").SetVal(1)

	require.NoError(t, cache.InvalidateAccount(context.Background(), "addr1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
