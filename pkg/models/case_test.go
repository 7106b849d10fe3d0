package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLegalTransition(t *testing.T) {
	cases := []struct {
		from, to CaseState
		legal    bool
	}{
		{CaseUploading, CaseScanning, true},
		{CaseScanning, CaseProcessing, true},
		{CaseScanning, CaseClarifying, true},
		{CaseClarifying, CaseProcessing, true},
		{CaseProcessing, CaseComplete, true},
		{CaseComplete, CaseWatching, true},
		{CaseWatching, CaseScanning, true},
		{CaseUploading, CaseComplete, false},
		{CaseComplete, CaseUploading, false},
		{CaseProcessing, CaseClarifying, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.legal, IsLegalTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
