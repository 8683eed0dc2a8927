package connection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txdecoder/internal/chains"
	decodeerrors "txdecoder/internal/errors"
)

func TestPool_ClientForReusesConnection(t *testing.T) {
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &fakeEth{}))
	defer server.Stop()

	var mu sync.Mutex
	dialed := map[chains.SupportedChain]int{}
	pool := NewPoolWithDialer(chains.DefaultRegistry(), testOptions(), quietLogger(),
		func(ctx context.Context, chain chains.ChainConfig) (*rpc.Client, error) {
			mu.Lock()
			dialed[chain.Key]++
			mu.Unlock()
			return rpc.DialInProc(server), nil
		})
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pool.ClientFor(context.Background(), "base")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	first, err := pool.ClientFor(context.Background(), "Base")
	require.NoError(t, err)
	second, err := pool.ClientFor(context.Background(), "base")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, dialed[chains.Base])
	assert.Equal(t, 1, pool.Size())
	assert.Equal(t, chains.Base, first.(*Client).Chain().Key)

	pool.Close()
	assert.Equal(t, 0, pool.Size())
}

func TestPool_UnsupportedChain(t *testing.T) {
	pool := NewPool(chains.DefaultRegistry(), testOptions(), quietLogger())

	_, err := pool.ClientFor(context.Background(), "solana")
	assert.True(t, decodeerrors.IsType(err, decodeerrors.ErrorTypeValidation))
}

func TestPool_DialFailure(t *testing.T) {
	pool := NewPoolWithDialer(chains.DefaultRegistry(), testOptions(), quietLogger(),
		func(ctx context.Context, chain chains.ChainConfig) (*rpc.Client, error) {
			return nil, errors.New("connection refused")
		})

	_, err := pool.ClientFor(context.Background(), "ethereum")
	require.Error(t, err)
	assert.True(t, decodeerrors.IsType(err, decodeerrors.ErrorTypeTransport))
	assert.Equal(t, 0, pool.Size())
}
