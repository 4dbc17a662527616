package shoes

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestClassify(t *testing.T) {
	rerr := &oauth2.RetrieveError{Response: &http.Response{Status: "401 Unauthorized"}}
	err := classify(rerr)
	assert.True(t, errors.Is(err, ErrUnauthenticated))
	assert.Contains(t, err.Error(), "401")

	// a retrieve error built without a response must not panic
	err = classify(&oauth2.RetrieveError{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(context.TODO(), "id", "secret", nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = NewClient(context.TODO(), "id", "secret", &oauth2.Token{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestNames(t *testing.T) {
	names := Names([]*Gear{{ID: "g1", Name: "Pegasus"}, {ID: "g2", Name: "Speedgoat"}})
	assert.Equal(t, map[string]string{"g1": "Pegasus", "g2": "Speedgoat"}, names)
}
