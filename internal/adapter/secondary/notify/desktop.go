package notify

import (
	"github.com/gen2brain/beeep"

	"announce-helper/internal/domain"
	"announce-helper/internal/logging"
)

// AppName is shown as the notification source.
const AppName = "announce-helper"

// Desktop implements domain.Notifier with beeep.
type Desktop struct {
	icon string
	send func(title, message, icon string) error
}

// NewDesktop creates a notifier. icon may be empty.
func NewDesktop(icon string) *Desktop {
	return &Desktop{icon: icon, send: func(title, message, icon string) error {
		return beeep.Notify(title, message, icon)
	}}
}

var _ domain.Notifier = (*Desktop)(nil)

func (d *Desktop) Notify(title, message string) error {
	original := beeep.AppName
	beeep.AppName = AppName
	defer func() { beeep.AppName = original }()

	if err := d.send(title, message, d.icon); err != nil {
		logging.Errorf("desktop notification: %v", err)
		return err
	}
	logging.Debugf("desktop notification sent: %s", title)
	return nil
}

// SessionFailure renders the notification for a failed session.
func SessionFailure(rep domain.SessionReport) (title, message string) {
	title = "アナウンスの実行に失敗しました"
	message = rep.ErrorDetail()
	if message == "" {
		message = rep.Err().Error()
	}
	return title, message + "\n" + rep.Command.Preview(domain.CommandPreviewLength)
}
