package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"announce-helper/internal/domain"
)

func TestDesktopNotify(t *testing.T) {
	var got []string
	d := &Desktop{icon: "", send: func(title, message, _ string) error {
		got = append(got, title, message)
		return nil
	}}

	require.NoError(t, d.Notify("t", "m"))
	assert.Equal(t, []string{"t", "m"}, got)
}

func TestDesktopNotifyError(t *testing.T) {
	d := &Desktop{send: func(string, string, string) error { return errors.New("no dbus") }}
	assert.Error(t, d.Notify("t", "m"))
}

func TestSessionFailure(t *testing.T) {
	rep := domain.SessionReport{
		Command:  domain.CommandSpec{Path: "/usr/bin/open", Args: []string{"x.app"}},
		ExitCode: 2,
	}
	title, msg := SessionFailure(rep)
	assert.NotEmpty(t, title)
	assert.Equal(t, "コマンド実行エラー (終了コード: 2)\n/usr/bin/open x.app", msg)
}
