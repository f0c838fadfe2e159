package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartplate/smartplate/internal/config"
	"github.com/smartplate/smartplate/internal/logging"
)

func TestWarnInsecureDefaults(t *testing.T) {
	cases := []struct {
		name     string
		cfg      config.Config
		wantWarn bool
	}{
		{"prod without client id", config.Config{Env: "prod"}, true},
		{"production without client id", config.Config{Env: "production"}, true},
		{"prod with client id", config.Config{Env: "prod", GoogleClientID: "abc.apps.googleusercontent.com"}, false},
		{"dev without client id", config.Config{Env: "dev"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			warnInsecureDefaults(context.Background(), tc.cfg, logging.New(&buf, true, "warn"))
			if tc.wantWarn {
				require.Contains(t, buf.String(), "GOOGLE_CLIENT_ID is unset")
				require.Contains(t, buf.String(), `"level":"WARN"`)
			} else {
				require.Empty(t, buf.String())
			}
		})
	}
}
