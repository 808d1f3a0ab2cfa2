package credential

import (
	"os"

	"github.com/m-mizutani/goerr/v2"

	"github.com/fmtr/relkit/pkg/domain/interfaces"
	"github.com/fmtr/relkit/pkg/domain/types"
)

// LookupFunc has the signature of os.LookupEnv
type LookupFunc func(key string) (string, bool)

type envStore struct {
	lookup LookupFunc
}

// NewEnv creates a credential store reading process environment variables.
// An empty variable counts as unset.
func NewEnv() interfaces.CredentialStore {
	return &envStore{lookup: os.LookupEnv}
}

// NewWithLookup creates a credential store backed by lookup
func NewWithLookup(lookup LookupFunc) interfaces.CredentialStore {
	return &envStore{lookup: lookup}
}

// NewStatic creates a credential store over a fixed map
func NewStatic(values map[string]string) interfaces.CredentialStore {
	return NewWithLookup(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
}

func (x *envStore) Lookup(key string) (types.Secret, error) {
	v, ok := x.lookup(key)
	if !ok || v == "" {
		return "", goerr.Wrap(types.ErrCredentialNotFound, "credential is not set", goerr.V("key", key))
	}
	return types.Secret(v), nil
}
