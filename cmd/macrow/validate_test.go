package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	macrowerrors "github.com/alexisbeaulieu97/macrow/pkg/errors"
)

func TestValidateCommandAcceptsValidFile(t *testing.T) {
	path := writeFixture(t, showFixtureYAML)

	stdout, err := executeCommand(t, "validate", path)
	require.NoError(t, err)
	require.Contains(t, stdout, "valid")
	require.Contains(t, stdout, "(6 steps)")
}

func TestValidateCommandReportsMissingField(t *testing.T) {
	path := writeFixture(t, "- kind: loop\n  body: []\n")

	_, err := executeCommand(t, "validate", path)

	var formatErr *macrowerrors.FormatError
	require.ErrorAs(t, err, &formatErr)
	require.Equal(t, "count", formatErr.Field)
	require.Equal(t, path, formatErr.Path)
}

func TestValidateCommandReportsBadValue(t *testing.T) {
	path := writeFixture(t, "- kind: image_find\n  template: button.png\n  threshold: 2\n")

	_, err := executeCommand(t, "validate", path)

	var validationErr *macrowerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Field, "threshold")
}
