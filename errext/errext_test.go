package errext

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindholm/pdfcapture/errext/exitcodes"
)

func TestWithExitCodeIfNone(t *testing.T) {
	base := errors.New("boom")
	wrapped := WithExitCodeIfNone(base, exitcodes.RenderFailed)

	var ec HasExitCode
	require.ErrorAs(t, wrapped, &ec)
	assert.Equal(t, exitcodes.RenderFailed, ec.ExitCode())

	again := WithExitCodeIfNone(wrapped, exitcodes.Cancelled)
	var ec2 HasExitCode
	require.ErrorAs(t, again, &ec2)
	assert.Equal(t, exitcodes.RenderFailed, ec2.ExitCode(), "should not overwrite an existing exit code")

	assert.Nil(t, WithExitCodeIfNone(nil, exitcodes.RenderFailed))
}

func TestWithHint(t *testing.T) {
	base := errors.New("boom")
	hinted := WithHint(base, "check the browser flags")

	var h HasHint
	require.ErrorAs(t, hinted, &h)
	assert.Equal(t, "check the browser flags", h.Hint())

	nested := WithHint(hinted, "outer")
	var h2 HasHint
	require.ErrorAs(t, nested, &h2)
	assert.Equal(t, "outer (check the browser flags)", h2.Hint())
}

func TestFormat(t *testing.T) {
	msg, fields := Format(WithHint(errors.New("boom"), "try again"))
	assert.Equal(t, "boom", msg)
	assert.Equal(t, "try again", fields["hint"])

	msg, fields = Format(nil)
	assert.Equal(t, "", msg)
	assert.Nil(t, fields)
}
