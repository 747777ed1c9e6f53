package probeerrors

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := map[string]struct {
		err  error
		want string
	}{
		"ErrInvalidArgument": {
			&ErrInvalidArgument{Name: "mode", Value: "SCTP"},
			`value "SCTP" is invalid for field "mode"`,
		},
		"ErrInvalidArgument with message": {
			&ErrInvalidArgument{Name: "totalRequests", Value: 0, Message: "must be positive"},
			`value "0" is invalid for field "totalRequests"; must be positive`,
		},
		"ErrUnexpectedStatus": {
			&ErrUnexpectedStatus{Url: "http://localhost/gelf", StatusCode: 503},
			"request to http://localhost/gelf failed with status 503",
		},
		"ErrUnexpectedStatus with body": {
			&ErrUnexpectedStatus{Url: "http://localhost/gelf", StatusCode: 400, Body: "bad"},
			"request to http://localhost/gelf failed with status 400: bad",
		},
		"ErrMissingField": {
			&ErrMissingField{Field: "total_results", Url: "http://localhost/api"},
			`response from http://localhost/api has no field "total_results"`,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestIsInvalidArgument(t *testing.T) {
	assert.True(t, IsInvalidArgument(&ErrInvalidArgument{}))
	assert.True(t, IsInvalidArgument(errors.WithMessage(&ErrInvalidArgument{}, "foo")))
	assert.False(t, IsInvalidArgument(errors.New("foo")))
	assert.False(t, IsInvalidArgument(nil))
}
