package registry_test

import (
	"sync"
	"testing"

	"github.com/ronniedz/jose4go/pkg/joseerrors"
	"github.com/ronniedz/jose4go/pkg/jwa"
	"github.com/ronniedz/jose4go/pkg/jwa/registry"
	"github.com/ronniedz/jose4go/pkg/jwa/sig"
	"github.com/stretchr/testify/require"
)

func TestLookups(t *testing.T) {
	r := registry.New()
	sig.Register(r)

	alg, err := r.Signature(jwa.ES512)
	require.NoError(t, err)
	require.Equal(t, jwa.ES512, alg.ID())

	// lookups are name-exact
	_, err = r.Signature("es512")
	require.Error(t, err)
	require.ErrorIs(t, err, joseerrors.ErrUnknownAlgorithm)

	_, err = r.KeyManagement(jwa.Direct)
	require.Error(t, err)
	require.ErrorIs(t, err, joseerrors.ErrUnknownAlgorithm)
}

func TestRegisterUnregister(t *testing.T) {
	r := registry.New()
	sig.Register(r)

	_, err := r.Signature(jwa.PS384)
	require.NoError(t, err)

	r.UnregisterSignature(jwa.PS384)
	_, err = r.Signature(jwa.PS384)
	require.Error(t, err)
	require.ErrorIs(t, err, joseerrors.ErrUnknownAlgorithm)

	// re-registering restores it
	sig.Register(r)
	_, err = r.Signature(jwa.PS384)
	require.NoError(t, err)
}

// TestConcurrentReaders exercises the single-writer many-readers
// discipline: lookups never observe a torn state while an algorithm
// is re-registered.
func TestConcurrentReaders(t *testing.T) {
	r := registry.New()
	sig.Register(r)

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				alg, err := r.Signature(jwa.HS256)
				if err == nil {
					require.Equal(t, jwa.HS256, alg.ID())
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			r.UnregisterSignature(jwa.HS256)
			sig.Register(r)
		}
	}()

	wg.Wait()

	_, err := r.Signature(jwa.HS256)
	require.NoError(t, err)
}

func TestCheckConstraints(t *testing.T) {
	// empty lists allow anything registered
	require.NoError(t, registry.CheckConstraints(jwa.RS256, nil, nil))

	// deny-list wins over allow-list
	err := registry.CheckConstraints(jwa.RS256, []jwa.Algorithm{jwa.RS256}, []jwa.Algorithm{jwa.RS256})
	require.Error(t, err)
	require.ErrorIs(t, err, joseerrors.ErrAlgorithmConstraintViolation)

	// allow-list excludes everything it does not name
	err = registry.CheckConstraints(jwa.HS256, []jwa.Algorithm{jwa.RS256}, nil)
	require.Error(t, err)
	require.ErrorIs(t, err, joseerrors.ErrAlgorithmConstraintViolation)

	require.NoError(t, registry.CheckConstraints(jwa.RS256, []jwa.Algorithm{jwa.RS256}, nil))
}
