package cli

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonasWIP/claude-code-server/internal/constants"
	ccerrors "github.com/JonasWIP/claude-code-server/internal/errors"
)

func TestExitCodeForError(t *testing.T) {
	assert.Equal(t, constants.ExitOK, ExitCodeForError(nil))
	assert.Equal(t, constants.ExitFailure, ExitCodeForError(ccerrors.ErrTestsFailed))
	assert.Equal(t, constants.ExitQuotaExhausted, ExitCodeForError(ccerrors.ErrQuotaExhausted))

	// Wrapped quota errors still map to the quota code.
	wrapped := fmt.Errorf("workflow failed: %w", ccerrors.ErrQuotaExhausted)
	assert.Equal(t, constants.ExitQuotaExhausted, ExitCodeForError(wrapped))
}
