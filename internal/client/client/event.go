package client

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strings"
	"time"

	"github.com/dmitrijs2005/punchclock/internal/models"
)

var (
	currentUser = user.Current
	hostname    = os.Hostname
	now         = time.Now
)

// BuildEvent describes a clock-in by the current OS user on this machine
// at the current local time. Non-empty username or sourceInfo replace the
// detected values.
func BuildEvent(username, sourceInfo string) (models.ClockEvent, error) {
	if username == "" {
		u, err := currentUser()
		if err != nil {
			return models.ClockEvent{}, fmt.Errorf("detect user: %w", err)
		}
		username = loginName(u.Username)
	}
	if strings.TrimSpace(username) == "" {
		return models.ClockEvent{}, errors.New("empty username")
	}

	if sourceInfo == "" {
		sourceInfo = describeMachine()
	}

	return models.ClockEvent{
		Username:   username,
		Timestamp:  now(),
		SourceInfo: sourceInfo,
	}, nil
}

// loginName strips a Windows domain prefix ("CORP\alice" -> "alice").
func loginName(s string) string {
	if i := strings.LastIndexByte(s, '\\'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func describeMachine() string {
	parts := []string{runtime.GOOS, runtime.GOARCH}
	if h, err := hostname(); err == nil && h != "" {
		parts = append(parts, h)
	}
	return strings.Join(parts, "-")
}
