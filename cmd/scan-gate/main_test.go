package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubcommand(t *testing.T) {
	cases := []struct {
		args []string
		mode string
		rest []string
	}{
		{args: nil, mode: "run", rest: nil},
		{args: []string{"serve", "--config", "c.yaml"}, mode: "serve", rest: []string{"--config", "c.yaml"}},
		{args: []string{"consume"}, mode: "consume", rest: []string{}},
		{args: []string{"--api-key", "k"}, mode: "run", rest: []string{"--api-key", "k"}},
	}
	for _, tc := range cases {
		mode, rest := subcommand(tc.args)
		assert.Equal(t, tc.mode, mode)
		assert.Equal(t, tc.rest, rest)
	}
}
