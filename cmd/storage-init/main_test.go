package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

func TestAlreadyExists(t *testing.T) {
	exists := &azcore.ResponseError{ErrorCode: "QueueAlreadyExists", StatusCode: 409}
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{name: "matching code", err: exists, code: "QueueAlreadyExists", want: true},
		{name: "wrapped", err: fmt.Errorf("create: %w", exists), code: "QueueAlreadyExists", want: true},
		{name: "other code", err: exists, code: "TableAlreadyExists", want: false},
		{name: "plain error", err: errors.New("boom"), code: "QueueAlreadyExists", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := alreadyExists(tt.err, tt.code); got != tt.want {
				t.Fatalf("alreadyExists = %v, want %v", got, tt.want)
			}
		})
	}
}
