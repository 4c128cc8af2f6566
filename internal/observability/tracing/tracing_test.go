package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestInjectTraceIDValue(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() {
		log.Logger = prev
	})

	ctx := InjectTraceIDValue(context.Background(), "abc")
	log.Ctx(ctx).Info().Msg("hello")

	assert.Contains(t, buf.String(), `"traceId":"abc"`)
}
