package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MY-Final/napcat-plugin-email/pkg/version"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "napcat-email", root.Use)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "send")
	assert.Contains(t, names, "version")
}

func TestVersionCommand(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, version.Version+"\n", out.String())
}

func TestSendCommand_RequiresRecipient(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"send", "--subject", "hi"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"to"`)
}

func TestGetEnvString(t *testing.T) {
	t.Setenv("NAPCAT_EMAIL_TEST_STRING", "from-env")
	assert.Equal(t, "from-env", getEnvString("NAPCAT_EMAIL_TEST_STRING", "def"))
	assert.Equal(t, "def", getEnvString("NAPCAT_EMAIL_TEST_UNSET", "def"))
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("NAPCAT_EMAIL_TEST_BOOL", "TRUE")
	assert.True(t, getEnvBool("NAPCAT_EMAIL_TEST_BOOL", false))

	t.Setenv("NAPCAT_EMAIL_TEST_BOOL", "nope")
	assert.False(t, getEnvBool("NAPCAT_EMAIL_TEST_BOOL", true))

	assert.True(t, getEnvBool("NAPCAT_EMAIL_TEST_BOOL_UNSET", true))
}
